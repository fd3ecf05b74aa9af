package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateTestimonialRequest struct {
	AuthorName  string `json:"author_name" binding:"required"`
	AuthorTitle string `json:"author_title"`
	Quote       string `json:"quote" binding:"required"`
	Rating      int    `json:"rating"`
	Approved    bool   `json:"approved"`
}

type UpdateTestimonialRequest struct {
	AuthorName  *string `json:"author_name"`
	AuthorTitle *string `json:"author_title"`
	Quote       *string `json:"quote"`
	Rating      *int    `json:"rating"`
	Approved    *bool   `json:"approved"`
}

type TestimonialResponse struct {
	ID          string `json:"id"`
	AuthorName  string `json:"author_name"`
	AuthorTitle string `json:"author_title"`
	Quote       string `json:"quote"`
	Rating      int    `json:"rating"`
	Approved    bool   `json:"approved"`
	CreatedAt   string `json:"created_at"`
}

// TestimonialService manages client quotes; the public listing shows only
// approved entries.
type TestimonialService interface {
	CreateTestimonial(ctx context.Context, actor Actor, req CreateTestimonialRequest) (TestimonialResponse, error)
	ListTestimonials(ctx context.Context, approvedOnly bool, page, limit int) ([]TestimonialResponse, int64, error)
	UpdateTestimonial(ctx context.Context, actor Actor, id string, req UpdateTestimonialRequest) (TestimonialResponse, error)
	DeleteTestimonial(ctx context.Context, actor Actor, id string) error
}

type testimonialService struct {
	testimonialRepo repository.TestimonialRepository
	audit           AuditService
}

func NewTestimonialService(testimonialRepo repository.TestimonialRepository, audit AuditService) TestimonialService {
	return &testimonialService{testimonialRepo: testimonialRepo, audit: audit}
}

func (s *testimonialService) CreateTestimonial(ctx context.Context, actor Actor, req CreateTestimonialRequest) (TestimonialResponse, error) {
	rating := req.Rating
	if rating == 0 {
		rating = 5
	}
	if rating < 1 || rating > 5 {
		return TestimonialResponse{}, apperr.New(apperr.Validation, "rating must be between 1 and 5")
	}

	testimonial := model.Testimonial{
		AuthorName:  req.AuthorName,
		AuthorTitle: req.AuthorTitle,
		Quote:       req.Quote,
		Rating:      rating,
		Approved:    req.Approved,
	}
	if err := s.testimonialRepo.Create(ctx, &testimonial); err != nil {
		return TestimonialResponse{}, fmt.Errorf("failed to create testimonial: %w", err)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionCreate,
		Entity:     model.EntityTestimonial,
		EntityID:   testimonial.ID.String(),
		EntityName: testimonial.AuthorName,
	})

	return mapTestimonial(testimonial), nil
}

func (s *testimonialService) ListTestimonials(ctx context.Context, approvedOnly bool, page, limit int) ([]TestimonialResponse, int64, error) {
	testimonials, total, err := s.testimonialRepo.List(ctx, approvedOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch testimonials: %w", err)
	}

	result := make([]TestimonialResponse, 0, len(testimonials))
	for _, t := range testimonials {
		result = append(result, mapTestimonial(t))
	}
	return result, total, nil
}

func (s *testimonialService) UpdateTestimonial(ctx context.Context, actor Actor, id string, req UpdateTestimonialRequest) (TestimonialResponse, error) {
	testimonial, err := s.findByID(ctx, id)
	if err != nil {
		return TestimonialResponse{}, err
	}

	if req.AuthorName != nil {
		testimonial.AuthorName = *req.AuthorName
	}
	if req.AuthorTitle != nil {
		testimonial.AuthorTitle = *req.AuthorTitle
	}
	if req.Quote != nil {
		testimonial.Quote = *req.Quote
	}
	if req.Rating != nil {
		if *req.Rating < 1 || *req.Rating > 5 {
			return TestimonialResponse{}, apperr.New(apperr.Validation, "rating must be between 1 and 5")
		}
		testimonial.Rating = *req.Rating
	}
	if req.Approved != nil {
		testimonial.Approved = *req.Approved
	}

	if err := s.testimonialRepo.Update(ctx, testimonial); err != nil {
		return TestimonialResponse{}, fmt.Errorf("failed to update testimonial: %w", err)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionUpdate,
		Entity:     model.EntityTestimonial,
		EntityID:   testimonial.ID.String(),
		EntityName: testimonial.AuthorName,
		Details:    map[string]interface{}{"approved": testimonial.Approved},
	})

	return mapTestimonial(*testimonial), nil
}

func (s *testimonialService) DeleteTestimonial(ctx context.Context, actor Actor, id string) error {
	testimonial, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.testimonialRepo.Delete(ctx, testimonial.ID); err != nil {
		return fmt.Errorf("failed to delete testimonial: %w", err)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionDelete,
		Entity:     model.EntityTestimonial,
		EntityID:   testimonial.ID.String(),
		EntityName: testimonial.AuthorName,
		Details:    map[string]interface{}{"quote": testimonial.Quote, "approved": testimonial.Approved},
	})
	return nil
}

func (s *testimonialService) findByID(ctx context.Context, id string) (*model.Testimonial, error) {
	testimonialID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.New(apperr.Validation, "invalid testimonial id")
	}
	testimonial, err := s.testimonialRepo.FindByID(ctx, testimonialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "testimonial not found")
		}
		return nil, fmt.Errorf("failed to load testimonial: %w", err)
	}
	return testimonial, nil
}

func mapTestimonial(t model.Testimonial) TestimonialResponse {
	return TestimonialResponse{
		ID:          t.ID.String(),
		AuthorName:  t.AuthorName,
		AuthorTitle: t.AuthorTitle,
		Quote:       t.Quote,
		Rating:      t.Rating,
		Approved:    t.Approved,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}
