package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuditEntry is the caller-facing shape of one administrative action to record.
type AuditEntry struct {
	UserID     string
	UserEmail  string
	Action     string // create, update, delete, login
	Entity     string
	EntityID   string
	EntityName string
	Details    map[string]interface{}
}

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	UserEmail  string `json:"user_email"`
	Action     string `json:"action"`
	Entity     string `json:"entity"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	Timestamp  int64  `json:"timestamp"` // Epoch millis
	CreatedAt  string `json:"created_at"`
}

// ActivityResponse is one row of the dashboard activity feed.
type ActivityResponse struct {
	Action      string `json:"action"`
	Time        string `json:"time"` // Human-readable relative time
	EntityType  string `json:"entityType"`
	EntityTitle string `json:"entityTitle"`
}

// AuditService records administrative actions and serves the activity feed.
// LogAction is strictly best-effort: it must never fail the caller's primary
// operation, so it returns nothing and logs failures internally.
type AuditService interface {
	LogAction(ctx context.Context, entry AuditEntry)
	RecentActivity(ctx context.Context, limit int) ([]ActivityResponse, error)
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	now       func() time.Time
	log       zerolog.Logger
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		now:       time.Now,
		log:       logger.WithComponent("audit"),
	}
}

func (s *auditService) LogAction(ctx context.Context, entry AuditEntry) {
	record := &model.AuditLog{
		UserEmail:  entry.UserEmail,
		Action:     entry.Action,
		Entity:     entry.Entity,
		EntityID:   entry.EntityID,
		EntityName: entry.EntityName,
		CreatedAt:  s.now(),
	}

	if entry.UserID != "" {
		if id, err := uuid.Parse(entry.UserID); err == nil {
			record.UserID = &id
		}
	}

	if len(entry.Details) > 0 {
		details, err := json.Marshal(entry.Details)
		if err != nil {
			s.log.Error().Err(err).Str("entity", entry.Entity).Msg("failed to serialize audit details")
		} else {
			record.Details = string(details)
		}
	}

	if err := s.auditRepo.Log(ctx, record); err != nil {
		s.log.Error().Err(err).
			Str("action", entry.Action).
			Str("entity", entry.Entity).
			Str("entity_id", entry.EntityID).
			Msg("failed to write audit log entry")
	}
}

func (s *auditService) RecentActivity(ctx context.Context, limit int) ([]ActivityResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	logs, err := s.auditRepo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent activity: %w", err)
	}

	now := s.now()
	res := make([]ActivityResponse, 0, len(logs))
	for _, l := range logs {
		title := l.EntityName
		if title == "" {
			title = l.EntityID
		}
		res = append(res, ActivityResponse{
			Action:      l.Action,
			Time:        relativeTime(now, l.CreatedAt),
			EntityType:  l.Entity,
			EntityTitle: title,
		})
	}
	return res, nil
}

func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userID := ""
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			UserEmail:  l.UserEmail,
			Action:     l.Action,
			Entity:     l.Entity,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			Timestamp:  l.CreatedAt.UnixMilli(),
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// relativeTime renders t against now for the activity feed ("5 minutes ago").
func relativeTime(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "1 day ago"
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
