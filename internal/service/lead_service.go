package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/websocket"
	"backend/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateLeadRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

type UpdateLeadRequest struct {
	Status *string `json:"status"`
	Phone  *string `json:"phone"`
	Notes  *string `json:"notes"`
}

type LeadResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// LeadService manages contact-form leads. Creation is the one public write in
// the system; everything else is admin-side pipeline management.
type LeadService interface {
	CreateLead(ctx context.Context, req CreateLeadRequest) (LeadResponse, error)
	ListLeads(ctx context.Context, status string, page, limit int) ([]LeadResponse, int64, error)
	UpdateLead(ctx context.Context, actor Actor, id string, req UpdateLeadRequest) (LeadResponse, error)
	DeleteLead(ctx context.Context, actor Actor, id string) error
}

type leadService struct {
	leadRepo repository.LeadRepository
	audit    AuditService
	hub      *websocket.Hub
}

func NewLeadService(leadRepo repository.LeadRepository, audit AuditService, hub *websocket.Hub) LeadService {
	return &leadService{leadRepo: leadRepo, audit: audit, hub: hub}
}

func (s *leadService) CreateLead(ctx context.Context, req CreateLeadRequest) (LeadResponse, error) {
	source := req.Source
	if source == "" {
		source = "contact_form"
	}

	lead := model.Lead{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
		Source:  source,
		Status:  model.LeadNew,
	}
	if err := s.leadRepo.Create(ctx, &lead); err != nil {
		return LeadResponse{}, fmt.Errorf("failed to create lead: %w", err)
	}

	if s.hub != nil {
		s.hub.Notify(websocket.EventLeadCreated, map[string]interface{}{
			"id":    lead.ID.String(),
			"name":  lead.Name,
			"email": lead.Email,
		})
	}

	return mapLead(lead), nil
}

func (s *leadService) ListLeads(ctx context.Context, status string, page, limit int) ([]LeadResponse, int64, error) {
	if status != "" && !validLeadStatus(status) {
		return nil, 0, apperr.New(apperr.Validation, "unknown lead status %q", status)
	}

	leads, total, err := s.leadRepo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch leads: %w", err)
	}

	result := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		result = append(result, mapLead(lead))
	}
	return result, total, nil
}

func (s *leadService) UpdateLead(ctx context.Context, actor Actor, id string, req UpdateLeadRequest) (LeadResponse, error) {
	lead, err := s.findByID(ctx, id)
	if err != nil {
		return LeadResponse{}, err
	}

	if req.Status != nil {
		if !validLeadStatus(*req.Status) {
			return LeadResponse{}, apperr.New(apperr.Validation, "unknown lead status %q", *req.Status)
		}
		lead.Status = *req.Status
	}
	if req.Phone != nil {
		lead.Phone = *req.Phone
	}
	if req.Notes != nil {
		lead.Message = *req.Notes
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return LeadResponse{}, fmt.Errorf("failed to update lead: %w", err)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionUpdate,
		Entity:     model.EntityLead,
		EntityID:   lead.ID.String(),
		EntityName: lead.Name,
		Details:    map[string]interface{}{"status": lead.Status},
	})

	return mapLead(*lead), nil
}

func (s *leadService) DeleteLead(ctx context.Context, actor Actor, id string) error {
	lead, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.leadRepo.Delete(ctx, lead.ID); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionDelete,
		Entity:     model.EntityLead,
		EntityID:   lead.ID.String(),
		EntityName: lead.Name,
		Details:    map[string]interface{}{"email": lead.Email, "status": lead.Status},
	})
	return nil
}

func (s *leadService) findByID(ctx context.Context, id string) (*model.Lead, error) {
	leadID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.New(apperr.Validation, "invalid lead id")
	}
	lead, err := s.leadRepo.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "lead not found")
		}
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}
	return lead, nil
}

func validLeadStatus(status string) bool {
	switch status {
	case model.LeadNew, model.LeadContacted, model.LeadConverted, model.LeadArchived:
		return true
	}
	return false
}

func mapLead(lead model.Lead) LeadResponse {
	return LeadResponse{
		ID:        lead.ID.String(),
		Name:      lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Message:   lead.Message,
		Source:    lead.Source,
		Status:    lead.Status,
		CreatedAt: lead.CreatedAt.Format(time.RFC3339),
	}
}
