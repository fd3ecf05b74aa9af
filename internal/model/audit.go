package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit action enum constants
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionLogin  = "login"
)

// Audited entity type constants
const (
	EntityInvoice     = "invoice"
	EntityPayment     = "pending_payment"
	EntityLead        = "lead"
	EntityResource    = "resource"
	EntityTestimonial = "testimonial"
	EntityUser        = "user"
)

// AuditLog tracks Who, What, and When for administrative actions.
// Append-only: entries are never mutated or deleted by application code.
// Password changes are deliberately never audited.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for system-originated events
	UserEmail  string     `gorm:"type:varchar(255)" json:"user_email"`
	Action     string     `gorm:"type:varchar(20);not null;index" json:"action"`
	Entity     string     `gorm:"type:varchar(50);not null;index" json:"entity"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable title
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
