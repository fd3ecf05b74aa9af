package model

import (
	"time"

	"github.com/google/uuid"
)

// Lead status enum constants
const (
	LeadNew       = "new"
	LeadContacted = "contacted"
	LeadConverted = "converted"
	LeadArchived  = "archived"
)

// Lead is a prospective client captured via the public contact form or
// entered directly by an admin.
type Lead struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone     string    `gorm:"type:varchar(30)" json:"phone"`
	Message   string    `gorm:"type:text" json:"message"`
	Source    string    `gorm:"type:varchar(50);not null;default:'contact_form'" json:"source"`
	Status    string    `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
