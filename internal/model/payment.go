package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PendingPayment status enum constants
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentExpired   = "expired"
	PaymentCancelled = "cancelled"
)

// PendingPayment is an out-of-band payment request not tied to the formal
// invoice flow. It is editable while pending and becomes completed when a
// matching payment event is observed (by checkout session id or email+amount).
type PendingPayment struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientEmail       string          `gorm:"type:varchar(255);not null;index" json:"client_email"`
	ClientName        string          `gorm:"type:varchar(255);not null" json:"client_name"`
	BaseAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"base_amount"`
	Description       string          `gorm:"type:varchar(500)" json:"description"`
	Status            string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	InvoiceNo         string          `gorm:"type:varchar(30);index" json:"invoice_no,omitempty"` // Optional linkage
	CheckoutSessionID string          `gorm:"type:varchar(255);index" json:"checkout_session_id,omitempty"`
	PaymentLinkURL    string          `gorm:"type:varchar(500)" json:"payment_link_url,omitempty"`
	ExpiresAt         time.Time       `gorm:"not null" json:"expires_at"`
	Notes             string          `gorm:"type:text" json:"notes"`
	CompletedAt       *time.Time      `json:"completed_at"`
	Version           int64           `gorm:"not null;default:1" json:"-"` // Optimistic lock counter
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
