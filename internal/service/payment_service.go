package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/gateway"
	"backend/internal/mailer"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/websocket"
	"backend/pkg/apperr"
	"backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreatePaymentRequest struct {
	ClientEmail string `json:"client_email" binding:"required,email"`
	ClientName  string `json:"client_name" binding:"required"`
	BaseAmount  string `json:"base_amount" binding:"required"` // Decimal string
	Description string `json:"description" binding:"required"`
	InvoiceNo   string `json:"invoice_no"` // Optional linkage
	ExpiresAt   string `json:"expires_at"` // RFC3339, optional, defaults to +30d
}

type UpdatePaymentRequest struct {
	BaseAmount  *string `json:"base_amount"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
}

type PaymentResponse struct {
	ID             string  `json:"id"`
	ClientEmail    string  `json:"client_email"`
	ClientName     string  `json:"client_name"`
	BaseAmount     string  `json:"base_amount"`
	Description    string  `json:"description"`
	Status         string  `json:"status"`
	InvoiceNo      string  `json:"invoice_no,omitempty"`
	PaymentLinkURL string  `json:"payment_link_url,omitempty"`
	ExpiresAt      string  `json:"expires_at"`
	Notes          string  `json:"notes"`
	CompletedAt    *string `json:"completed_at"`
	CreatedAt      string  `json:"created_at"`
}

type PaymentFilter struct {
	Status      string
	ClientEmail string
	Page        int
	Limit       int
}

// --- Interface ---

// PaymentService owns out-of-band ("pay later") payment requests tied to
// coaching clients by email. Completion is idempotent; edits to pending
// records notify the client only when amount or description actually change.
type PaymentService interface {
	CreatePayment(ctx context.Context, actor Actor, req CreatePaymentRequest) (PaymentResponse, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentResponse, int64, error)
	UpdatePayment(ctx context.Context, actor Actor, id string, req UpdatePaymentRequest) (PaymentResponse, error)
	MarkCompleted(ctx context.Context, id string) (PaymentResponse, error)
	CreateCheckout(ctx context.Context, actor Actor, id string) (PaymentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	invoices    InvoiceService
	audit       AuditService
	mail        mailer.Mailer
	gw          gateway.Gateway
	hub         *websocket.Hub
	now         func() time.Time
	log         zerolog.Logger
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	invoices InvoiceService,
	audit AuditService,
	mail mailer.Mailer,
	gw gateway.Gateway,
	hub *websocket.Hub,
) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		invoices:    invoices,
		audit:       audit,
		mail:        mail,
		gw:          gw,
		hub:         hub,
		now:         time.Now,
		log:         logger.WithComponent("payment"),
	}
}

// --- Implementation ---

func (s *paymentService) CreatePayment(ctx context.Context, actor Actor, req CreatePaymentRequest) (PaymentResponse, error) {
	baseAmount, err := decimal.NewFromString(req.BaseAmount)
	if err != nil {
		return PaymentResponse{}, apperr.New(apperr.Validation, "invalid base_amount: %v", err)
	}
	if baseAmount.IsNegative() {
		return PaymentResponse{}, apperr.New(apperr.Validation, "base_amount must not be negative")
	}

	expiresAt := s.now().AddDate(0, 0, 30)
	if req.ExpiresAt != "" {
		expiresAt, err = time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return PaymentResponse{}, apperr.New(apperr.Validation, "invalid expires_at, expected RFC3339")
		}
	}

	payment := model.PendingPayment{
		ClientEmail: req.ClientEmail,
		ClientName:  req.ClientName,
		BaseAmount:  baseAmount,
		Description: req.Description,
		Status:      model.PaymentPending,
		InvoiceNo:   req.InvoiceNo,
		ExpiresAt:   expiresAt,
		Version:     1,
	}

	if err := s.paymentRepo.Create(ctx, &payment); err != nil {
		return PaymentResponse{}, fmt.Errorf("failed to create pending payment: %w", err)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionCreate,
		Entity:     model.EntityPayment,
		EntityID:   payment.ID.String(),
		EntityName: payment.Description,
		Details:    map[string]interface{}{"client_email": payment.ClientEmail, "base_amount": payment.BaseAmount.StringFixed(2)},
	})

	return s.toResponse(payment), nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	payments, total, err := s.paymentRepo.List(ctx, repository.PaymentListFilter{
		Status:      filter.Status,
		ClientEmail: filter.ClientEmail,
		Page:        filter.Page,
		Limit:       filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch pending payments: %w", err)
	}

	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, s.toResponse(p))
	}
	return result, total, nil
}

// UpdatePayment revises a still-pending record. The client is notified only
// when base_amount or description actually change value; the notification is
// best-effort and never fails the update.
func (s *paymentService) UpdatePayment(ctx context.Context, actor Actor, id string, req UpdatePaymentRequest) (PaymentResponse, error) {
	payment, err := s.findByID(ctx, id)
	if err != nil {
		return PaymentResponse{}, err
	}

	if payment.Status != model.PaymentPending {
		return PaymentResponse{}, apperr.New(apperr.Conflict, "only pending payments can be edited")
	}

	notify := false
	if req.BaseAmount != nil {
		baseAmount, err := decimal.NewFromString(*req.BaseAmount)
		if err != nil {
			return PaymentResponse{}, apperr.New(apperr.Validation, "invalid base_amount: %v", err)
		}
		if baseAmount.IsNegative() {
			return PaymentResponse{}, apperr.New(apperr.Validation, "base_amount must not be negative")
		}
		if !baseAmount.Equal(payment.BaseAmount) {
			payment.BaseAmount = baseAmount
			notify = true
		}
	}
	if req.Description != nil && *req.Description != payment.Description {
		payment.Description = *req.Description
		notify = true
	}
	if req.Notes != nil {
		payment.Notes = *req.Notes
	}

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return PaymentResponse{}, s.updateError(err, payment.ID)
	}

	if notify {
		s.notifyClient(ctx, payment)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionUpdate,
		Entity:     model.EntityPayment,
		EntityID:   payment.ID.String(),
		EntityName: payment.Description,
		Details:    map[string]interface{}{"base_amount": payment.BaseAmount.StringFixed(2), "notified": notify},
	})

	return s.toResponse(*payment), nil
}

// MarkCompleted records a confirmed payment. Idempotent: completing an
// already-completed record is a no-op success.
func (s *paymentService) MarkCompleted(ctx context.Context, id string) (PaymentResponse, error) {
	payment, err := s.findByID(ctx, id)
	if err != nil {
		return PaymentResponse{}, err
	}

	resp, err := s.complete(ctx, payment)
	if err != nil {
		return PaymentResponse{}, err
	}
	return resp, nil
}

func (s *paymentService) complete(ctx context.Context, payment *model.PendingPayment) (PaymentResponse, error) {
	if payment.Status == model.PaymentCompleted {
		return s.toResponse(*payment), nil
	}
	if payment.Status == model.PaymentCancelled {
		return PaymentResponse{}, apperr.New(apperr.Conflict, "payment is cancelled")
	}

	now := s.now()
	payment.Status = model.PaymentCompleted
	if payment.CompletedAt == nil {
		payment.CompletedAt = &now
	}

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return PaymentResponse{}, s.updateError(err, payment.ID)
	}

	if s.hub != nil {
		s.hub.Notify(websocket.EventPaymentCompleted, map[string]interface{}{
			"id":           payment.ID.String(),
			"client_email": payment.ClientEmail,
			"base_amount":  payment.BaseAmount.StringFixed(2),
		})
	}

	s.log.Info().Str("payment_id", payment.ID.String()).Msg("pending payment completed")
	return s.toResponse(*payment), nil
}

// CreateCheckout issues a provider checkout session for a pending payment and
// stores the session id and redirect URL on the record.
func (s *paymentService) CreateCheckout(ctx context.Context, actor Actor, id string) (PaymentResponse, error) {
	payment, err := s.findByID(ctx, id)
	if err != nil {
		return PaymentResponse{}, err
	}

	if payment.Status != model.PaymentPending {
		return PaymentResponse{}, apperr.New(apperr.Conflict, "checkout requires a pending payment")
	}

	session, err := s.gw.CreateCheckoutSession(ctx, gateway.CheckoutParams{
		ClientEmail: payment.ClientEmail,
		Description: payment.Description,
		Amount:      payment.BaseAmount,
		Reference:   payment.ID.String(),
		InvoiceNo:   payment.InvoiceNo,
	})
	if err != nil {
		return PaymentResponse{}, err
	}

	payment.CheckoutSessionID = session.ID
	payment.PaymentLinkURL = session.URL
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return PaymentResponse{}, s.updateError(err, payment.ID)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionUpdate,
		Entity:     model.EntityPayment,
		EntityID:   payment.ID.String(),
		EntityName: payment.Description,
		Details:    map[string]interface{}{"checkout_session": session.ID},
	})

	return s.toResponse(*payment), nil
}

// HandleWebhook applies a verified provider event: completes the matching
// pending payment and, when linked, marks the invoice paid.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gw.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	if event.Type != gateway.EventCheckoutCompleted {
		return nil
	}

	payment, err := s.paymentRepo.FindByCheckoutSession(ctx, event.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn().Str("session_id", event.SessionID).Msg("payment event for unknown checkout session")
			return nil
		}
		return fmt.Errorf("failed to look up checkout session: %w", err)
	}

	if _, err := s.complete(ctx, payment); err != nil {
		return err
	}

	if payment.InvoiceNo != "" {
		if err := s.invoices.MarkPaidByInvoiceNo(ctx, payment.InvoiceNo); err != nil {
			// The payment itself is recorded; invoice linkage failure is
			// logged for manual reconciliation.
			s.log.Error().Err(err).Str("invoice_no", payment.InvoiceNo).Msg("failed to mark linked invoice paid")
		} else if s.hub != nil {
			s.hub.Notify(websocket.EventInvoicePaid, map[string]interface{}{
				"invoice_no": payment.InvoiceNo,
			})
		}
	}

	return nil
}

// --- Helpers ---

func (s *paymentService) findByID(ctx context.Context, id string) (*model.PendingPayment, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.New(apperr.Validation, "invalid payment id")
	}

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "pending payment not found")
		}
		return nil, fmt.Errorf("failed to load pending payment: %w", err)
	}
	return payment, nil
}

func (s *paymentService) updateError(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.Conflict, "payment %s was modified concurrently, retry", id)
	}
	return fmt.Errorf("failed to update payment %s: %w", id, err)
}

func (s *paymentService) notifyClient(ctx context.Context, payment *model.PendingPayment) {
	html := fmt.Sprintf(
		"<p>Dear %s,</p><p>Your payment request has been updated: %s, amount %s.</p>",
		payment.ClientName, payment.Description, payment.BaseAmount.StringFixed(2),
	)
	err := s.mail.Send(ctx, mailer.Message{
		To:      payment.ClientEmail,
		Subject: "Your payment request was updated",
		HTML:    html,
	})
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to notify client of payment update")
	}
}

// --- Mapping ---

func (s *paymentService) toResponse(p model.PendingPayment) PaymentResponse {
	resp := PaymentResponse{
		ID:             p.ID.String(),
		ClientEmail:    p.ClientEmail,
		ClientName:     p.ClientName,
		BaseAmount:     p.BaseAmount.StringFixed(2),
		Description:    p.Description,
		Status:         effectivePaymentStatus(&p, s.now()),
		InvoiceNo:      p.InvoiceNo,
		PaymentLinkURL: p.PaymentLinkURL,
		ExpiresAt:      p.ExpiresAt.Format(time.RFC3339),
		Notes:          p.Notes,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
	if p.CompletedAt != nil {
		v := p.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	return resp
}

// effectivePaymentStatus derives expiry on read: a pending record past its
// expiresAt is reported expired without an eager write.
func effectivePaymentStatus(p *model.PendingPayment, now time.Time) string {
	if p.Status == model.PaymentPending && now.After(p.ExpiresAt) {
		return model.PaymentExpired
	}
	return p.Status
}
