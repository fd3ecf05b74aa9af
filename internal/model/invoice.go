package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus enum constants
const (
	InvoiceDraft     = "draft"
	InvoiceSent      = "sent"
	InvoicePaid      = "paid"
	InvoiceOverdue   = "overdue"
	InvoiceCancelled = "cancelled"
)

// ValidInvoiceStatus reports whether s is one of the five invoice statuses.
func ValidInvoiceStatus(s string) bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

// Invoice is a formal billing document for a coaching client.
// Invariant: Total = Subtotal + TaxAmount. SentAt and PaidAt are written once
// on their first transition and never overwritten.
type Invoice struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	ClientName  string          `gorm:"type:varchar(255);not null" json:"client_name"`
	ClientEmail string          `gorm:"type:varchar(255);not null;index" json:"client_email"`
	Items       []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"tax_rate"` // Percent
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	Total       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
	Status      string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	IssueDate   time.Time       `gorm:"not null" json:"issue_date"`
	DueDate     time.Time       `gorm:"not null" json:"due_date"`
	SentAt      *time.Time      `json:"sent_at"`
	PaidAt      *time.Time      `json:"paid_at"`
	Notes       string          `gorm:"type:text" json:"notes"`
	Version     int64           `gorm:"not null;default:1" json:"-"` // Optimistic lock counter
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InvoiceItem is one billed line: Amount = Quantity * UnitPrice.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Description string          `gorm:"type:varchar(500);not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
}
