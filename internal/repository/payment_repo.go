package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentListFilter narrows List results
type PaymentListFilter struct {
	Status      string // pending, completed, expired, cancelled or empty for all
	ClientEmail string
	Page        int
	Limit       int
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.PendingPayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PendingPayment, error)
	FindByCheckoutSession(ctx context.Context, sessionID string) (*model.PendingPayment, error)
	List(ctx context.Context, filter PaymentListFilter) ([]model.PendingPayment, int64, error)
	Update(ctx context.Context, payment *model.PendingPayment) error
	SumCompletedBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	CountCompletedBetween(ctx context.Context, start, end time.Time) (int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.PendingPayment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PendingPayment, error) {
	var payment model.PendingPayment
	if err := GetDB(ctx, r.db).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByCheckoutSession(ctx context.Context, sessionID string) (*model.PendingPayment, error) {
	var payment model.PendingPayment
	if err := GetDB(ctx, r.db).First(&payment, "checkout_session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentListFilter) ([]model.PendingPayment, int64, error) {
	var payments []model.PendingPayment
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.PendingPayment{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientEmail != "" {
		query = query.Where("client_email = ?", filter.ClientEmail)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

// Update persists the payment guarded by its optimistic version counter.
// Returns gorm.ErrRecordNotFound when another writer got there first.
func (r *paymentRepository) Update(ctx context.Context, payment *model.PendingPayment) error {
	currentVersion := payment.Version
	payment.Version++

	result := GetDB(ctx, r.db).Model(&model.PendingPayment{}).
		Where("id = ? AND version = ?", payment.ID, currentVersion).
		Select("*").Omit("id", "created_at").
		Updates(payment)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *paymentRepository) SumCompletedBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var row struct {
		Value decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.PendingPayment{}).
		Select("COALESCE(SUM(base_amount), 0) as value").
		Where("status = ? AND completed_at >= ? AND completed_at <= ?", model.PaymentCompleted, start, end).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Value, nil
}

func (r *paymentRepository) CountCompletedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PendingPayment{}).
		Where("status = ? AND completed_at >= ? AND completed_at <= ?", model.PaymentCompleted, start, end).
		Count(&count).Error
	return count, err
}
