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

type CreateResourceRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	FileURL     string `json:"file_url"`
	Category    string `json:"category"`
	Published   bool   `json:"published"`
}

type UpdateResourceRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	FileURL     *string `json:"file_url"`
	Category    *string `json:"category"`
	Published   *bool   `json:"published"`
}

type ResourceResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FileURL     string `json:"file_url"`
	Category    string `json:"category"`
	Published   bool   `json:"published"`
	CreatedAt   string `json:"created_at"`
}

// ResourceService manages downloadable coaching materials. The public listing
// only ever sees published entries.
type ResourceService interface {
	CreateResource(ctx context.Context, actor Actor, req CreateResourceRequest) (ResourceResponse, error)
	ListResources(ctx context.Context, category string, publishedOnly bool, page, limit int) ([]ResourceResponse, int64, error)
	UpdateResource(ctx context.Context, actor Actor, id string, req UpdateResourceRequest) (ResourceResponse, error)
	DeleteResource(ctx context.Context, actor Actor, id string) error
}

type resourceService struct {
	resourceRepo repository.ResourceRepository
	audit        AuditService
}

func NewResourceService(resourceRepo repository.ResourceRepository, audit AuditService) ResourceService {
	return &resourceService{resourceRepo: resourceRepo, audit: audit}
}

func (s *resourceService) CreateResource(ctx context.Context, actor Actor, req CreateResourceRequest) (ResourceResponse, error) {
	resource := model.Resource{
		Title:       req.Title,
		Description: req.Description,
		FileURL:     req.FileURL,
		Category:    req.Category,
		Published:   req.Published,
	}
	if err := s.resourceRepo.Create(ctx, &resource); err != nil {
		return ResourceResponse{}, fmt.Errorf("failed to create resource: %w", err)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionCreate,
		Entity:     model.EntityResource,
		EntityID:   resource.ID.String(),
		EntityName: resource.Title,
	})

	return mapResource(resource), nil
}

func (s *resourceService) ListResources(ctx context.Context, category string, publishedOnly bool, page, limit int) ([]ResourceResponse, int64, error) {
	resources, total, err := s.resourceRepo.List(ctx, category, publishedOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch resources: %w", err)
	}

	result := make([]ResourceResponse, 0, len(resources))
	for _, r := range resources {
		result = append(result, mapResource(r))
	}
	return result, total, nil
}

func (s *resourceService) UpdateResource(ctx context.Context, actor Actor, id string, req UpdateResourceRequest) (ResourceResponse, error) {
	resource, err := s.findByID(ctx, id)
	if err != nil {
		return ResourceResponse{}, err
	}

	if req.Title != nil {
		resource.Title = *req.Title
	}
	if req.Description != nil {
		resource.Description = *req.Description
	}
	if req.FileURL != nil {
		resource.FileURL = *req.FileURL
	}
	if req.Category != nil {
		resource.Category = *req.Category
	}
	if req.Published != nil {
		resource.Published = *req.Published
	}

	if err := s.resourceRepo.Update(ctx, resource); err != nil {
		return ResourceResponse{}, fmt.Errorf("failed to update resource: %w", err)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionUpdate,
		Entity:     model.EntityResource,
		EntityID:   resource.ID.String(),
		EntityName: resource.Title,
	})

	return mapResource(*resource), nil
}

func (s *resourceService) DeleteResource(ctx context.Context, actor Actor, id string) error {
	resource, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.resourceRepo.Delete(ctx, resource.ID); err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionDelete,
		Entity:     model.EntityResource,
		EntityID:   resource.ID.String(),
		EntityName: resource.Title,
		Details:    map[string]interface{}{"category": resource.Category, "published": resource.Published},
	})
	return nil
}

func (s *resourceService) findByID(ctx context.Context, id string) (*model.Resource, error) {
	resourceID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.New(apperr.Validation, "invalid resource id")
	}
	resource, err := s.resourceRepo.FindByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "resource not found")
		}
		return nil, fmt.Errorf("failed to load resource: %w", err)
	}
	return resource, nil
}

func mapResource(r model.Resource) ResourceResponse {
	return ResourceResponse{
		ID:          r.ID.String(),
		Title:       r.Title,
		Description: r.Description,
		FileURL:     r.FileURL,
		Category:    r.Category,
		Published:   r.Published,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}
