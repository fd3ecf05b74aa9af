package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TestimonialRepository interface {
	Create(ctx context.Context, testimonial *model.Testimonial) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Testimonial, error)
	List(ctx context.Context, approvedOnly bool, page, limit int) ([]model.Testimonial, int64, error)
	Update(ctx context.Context, testimonial *model.Testimonial) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type testimonialRepository struct {
	db *gorm.DB
}

func NewTestimonialRepository(db *gorm.DB) TestimonialRepository {
	return &testimonialRepository{db: db}
}

func (r *testimonialRepository) Create(ctx context.Context, testimonial *model.Testimonial) error {
	return GetDB(ctx, r.db).Create(testimonial).Error
}

func (r *testimonialRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Testimonial, error) {
	var testimonial model.Testimonial
	if err := GetDB(ctx, r.db).First(&testimonial, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &testimonial, nil
}

func (r *testimonialRepository) List(ctx context.Context, approvedOnly bool, page, limit int) ([]model.Testimonial, int64, error) {
	var testimonials []model.Testimonial
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Testimonial{})
	if approvedOnly {
		query = query.Where("approved = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&testimonials).Error; err != nil {
		return nil, 0, err
	}

	return testimonials, total, nil
}

func (r *testimonialRepository) Update(ctx context.Context, testimonial *model.Testimonial) error {
	return GetDB(ctx, r.db).Save(testimonial).Error
}

func (r *testimonialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Testimonial{}).Error
}
