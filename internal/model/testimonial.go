package model

import (
	"time"

	"github.com/google/uuid"
)

// Testimonial is a client quote displayed on the public site once approved.
type Testimonial struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AuthorName  string    `gorm:"type:varchar(255);not null" json:"author_name"`
	AuthorTitle string    `gorm:"type:varchar(255)" json:"author_title"`
	Quote       string    `gorm:"type:text;not null" json:"quote"`
	Rating      int       `gorm:"not null;default:5" json:"rating"` // 1..5
	Approved    bool      `gorm:"not null;default:false;index" json:"approved"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
