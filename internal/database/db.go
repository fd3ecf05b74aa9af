package database

import (
	"backend/internal/model"
	"backend/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.PasswordResetToken{},
		&model.EmailVerificationToken{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.PendingPayment{},
		&model.Lead{},
		&model.Resource{},
		&model.Testimonial{},
		&model.AuditLog{},
	)
	if err != nil {
		log := logger.WithComponent("database")
		log.Warn().Err(err).Msg("failed to auto-migrate models")
	}

	return db, nil
}
