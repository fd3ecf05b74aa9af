package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceListFilter narrows List results
type InvoiceListFilter struct {
	Status      string // draft, sent, paid, overdue, cancelled or empty for all
	ClientEmail string
	Page        int
	Limit       int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByInvoiceNo(ctx context.Context, invoiceNo string) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	Update(ctx context.Context, invoice *model.Invoice) error
	UpdateWithItems(ctx context.Context, invoice *model.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
	SumPaidBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	CountPaidBetween(ctx context.Context, start, end time.Time) (int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Preload("Items").First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByInvoiceNo(ctx context.Context, invoiceNo string) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Preload("Items").First(&invoice, "invoice_no = ?", invoiceNo).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Invoice{})
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
	fetchQuery := db.Preload("Items")
	if filter.Status != "" {
		fetchQuery = fetchQuery.Where("status = ?", filter.Status)
	}
	if filter.ClientEmail != "" {
		fetchQuery = fetchQuery.Where("client_email = ?", filter.ClientEmail)
	}
	if err := fetchQuery.Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

// Update persists the invoice guarded by its optimistic version counter.
// Returns gorm.ErrRecordNotFound when another writer got there first.
func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	currentVersion := invoice.Version
	invoice.Version++

	result := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("id = ? AND version = ?", invoice.ID, currentVersion).
		Select("*").Omit("id", "created_at", "Items").
		Updates(invoice)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateWithItems persists the invoice and replaces its line items in one
// transaction, guarded by the same optimistic version counter. Superseded
// item rows are deleted, not orphaned.
func (r *invoiceRepository) UpdateWithItems(ctx context.Context, invoice *model.Invoice) error {
	currentVersion := invoice.Version
	invoice.Version++

	return GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Invoice{}).
			Where("id = ? AND version = ?", invoice.ID, currentVersion).
			Select("*").Omit("id", "created_at", "Items").
			Updates(invoice)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(invoice).Association("Items").Unscoped().Replace(invoice.Items)
	})
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Invoice{}).Error
}

func (r *invoiceRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("invoice_no LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *invoiceRepository) SumPaidBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var row struct {
		Value decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select("COALESCE(SUM(total), 0) as value").
		Where("status = ? AND paid_at >= ? AND paid_at <= ?", model.InvoicePaid, start, end).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Value, nil
}

// CountPaidBetween windows on paid_at, matching SumPaidBetween, so an
// invoice issued before the window but settled inside it counts as a
// conversion in the same period that books its revenue.
func (r *invoiceRepository) CountPaidBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("status = ? AND paid_at >= ? AND paid_at <= ?", model.InvoicePaid, start, end).
		Count(&count).Error
	return count, err
}
