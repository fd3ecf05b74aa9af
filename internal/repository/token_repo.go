package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"gorm.io/gorm"
)

// TokenRepository stores single-use password-reset and email-verification
// tokens. Consumption marks a token used; Purge removes expired rows.
type TokenRepository interface {
	CreateReset(ctx context.Context, token *model.PasswordResetToken) error
	FindReset(ctx context.Context, token string) (*model.PasswordResetToken, error)
	ConsumeReset(ctx context.Context, token *model.PasswordResetToken) error

	CreateVerification(ctx context.Context, token *model.EmailVerificationToken) error
	FindVerification(ctx context.Context, token string) (*model.EmailVerificationToken, error)
	ConsumeVerification(ctx context.Context, token *model.EmailVerificationToken) error

	PurgeExpired(ctx context.Context, now time.Time) error
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateReset(ctx context.Context, token *model.PasswordResetToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *tokenRepository) FindReset(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	if err := GetDB(ctx, r.db).First(&t, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepository) ConsumeReset(ctx context.Context, token *model.PasswordResetToken) error {
	token.Used = true
	return GetDB(ctx, r.db).Model(token).Update("used", true).Error
}

func (r *tokenRepository) CreateVerification(ctx context.Context, token *model.EmailVerificationToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *tokenRepository) FindVerification(ctx context.Context, token string) (*model.EmailVerificationToken, error) {
	var t model.EmailVerificationToken
	if err := GetDB(ctx, r.db).First(&t, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepository) ConsumeVerification(ctx context.Context, token *model.EmailVerificationToken) error {
	token.Used = true
	return GetDB(ctx, r.db).Model(token).Update("used", true).Error
}

func (r *tokenRepository) PurgeExpired(ctx context.Context, now time.Time) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("expires_at < ?", now).Delete(&model.PasswordResetToken{}).Error; err != nil {
		return err
	}
	return db.Where("expires_at < ?", now).Delete(&model.EmailVerificationToken{}).Error
}
