package model

import (
	"time"

	"github.com/google/uuid"
)

// Resource is a downloadable coaching material surfaced on the public site
// when published.
type Resource struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	FileURL     string    `gorm:"type:varchar(500)" json:"file_url"`
	Category    string    `gorm:"type:varchar(100);index" json:"category"`
	Published   bool      `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
