package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/mailer"
	"backend/internal/model"
	"backend/internal/pdfgen"
	"backend/internal/repository"
	"backend/pkg/apperr"
	"backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Actor identifies the admin performing a mutation, for audit attribution.
type Actor struct {
	ID    string
	Email string
}

// --- DTOs ---

type InvoiceItemRequest struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required"`
	UnitPrice   string `json:"unit_price" binding:"required"` // Decimal string
}

type CreateInvoiceRequest struct {
	ClientName  string               `json:"client_name" binding:"required"`
	ClientEmail string               `json:"client_email" binding:"required,email"`
	Items       []InvoiceItemRequest `json:"items" binding:"required,min=1"`
	TaxRate     string               `json:"tax_rate"` // Percent, optional, defaults to 0
	DueDate     string               `json:"due_date"` // RFC3339, optional, defaults to issue+14d
	Notes       string               `json:"notes"`
}

type UpdateInvoiceRequest struct {
	ClientName *string               `json:"client_name"`
	Notes      *string               `json:"notes"`
	Items      *[]InvoiceItemRequest `json:"items"` // Pre-payment amount correction
	TaxRate    *string               `json:"tax_rate"`
}

type InvoiceItemResponse struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

type InvoiceResponse struct {
	ID          string                `json:"id"`
	InvoiceNo   string                `json:"invoice_no"`
	ClientName  string                `json:"client_name"`
	ClientEmail string                `json:"client_email"`
	Items       []InvoiceItemResponse `json:"items"`
	Subtotal    string                `json:"subtotal"`
	TaxRate     string                `json:"tax_rate"`
	TaxAmount   string                `json:"tax_amount"`
	Total       string                `json:"total"`
	Status      string                `json:"status"`
	IssueDate   string                `json:"issue_date"`
	DueDate     string                `json:"due_date"`
	SentAt      *string               `json:"sent_at"`
	PaidAt      *string               `json:"paid_at"`
	Notes       string                `json:"notes"`
	CreatedAt   string                `json:"created_at"`
}

type InvoiceFilter struct {
	Status      string
	ClientEmail string
	Page        int
	Limit       int
}

// --- Interface ---

// InvoiceService owns the invoice status lifecycle. Status changes happen only
// through these operations; sentAt/paidAt are written once and never erased.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, actor Actor, req CreateInvoiceRequest) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	UpdateInvoice(ctx context.Context, actor Actor, id string, req UpdateInvoiceRequest) (InvoiceResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, newStatus string) (InvoiceResponse, error)
	EmailInvoice(ctx context.Context, actor Actor, id string, message string) error
	RenderInvoice(ctx context.Context, id string) ([]byte, string, error)
	DeleteInvoice(ctx context.Context, actor Actor, id string) error
	MarkPaidByInvoiceNo(ctx context.Context, invoiceNo string) error
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	txManager   repository.TransactionManager
	audit       AuditService
	mail        mailer.Mailer
	renderer    pdfgen.Renderer
	now         func() time.Time
	log         zerolog.Logger
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	txManager repository.TransactionManager,
	audit AuditService,
	mail mailer.Mailer,
	renderer pdfgen.Renderer,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		txManager:   txManager,
		audit:       audit,
		mail:        mail,
		renderer:    renderer,
		now:         time.Now,
		log:         logger.WithComponent("invoice"),
	}
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, actor Actor, req CreateInvoiceRequest) (InvoiceResponse, error) {
	items, subtotal, err := buildItems(req.Items)
	if err != nil {
		return InvoiceResponse{}, err
	}

	taxRate := decimal.Zero
	if req.TaxRate != "" {
		taxRate, err = decimal.NewFromString(req.TaxRate)
		if err != nil {
			return InvoiceResponse{}, apperr.New(apperr.Validation, "invalid tax_rate: %v", err)
		}
		if taxRate.IsNegative() {
			return InvoiceResponse{}, apperr.New(apperr.Validation, "tax_rate must not be negative")
		}
	}

	now := s.now()
	dueDate := now.AddDate(0, 0, 14)
	if req.DueDate != "" {
		dueDate, err = time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			return InvoiceResponse{}, apperr.New(apperr.Validation, "invalid due_date, expected RFC3339")
		}
	}

	taxAmount := subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)
	total := subtotal.Add(taxAmount)

	var invoice model.Invoice

	// Number generation and insert share a transaction so concurrent
	// creates cannot race to the same invoice number.
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoiceNo, err := s.generateInvoiceNo(txCtx)
		if err != nil {
			return fmt.Errorf("failed to generate invoice number: %w", err)
		}

		invoice = model.Invoice{
			InvoiceNo:   invoiceNo,
			ClientName:  req.ClientName,
			ClientEmail: req.ClientEmail,
			Items:       items,
			Subtotal:    subtotal,
			TaxRate:     taxRate,
			TaxAmount:   taxAmount,
			Total:       total,
			Status:      model.InvoiceDraft,
			IssueDate:   now,
			DueDate:     dueDate,
			Notes:       req.Notes,
			Version:     1,
		}

		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionCreate,
		Entity:     model.EntityInvoice,
		EntityID:   invoice.ID.String(),
		EntityName: invoice.InvoiceNo,
		Details:    map[string]interface{}{"client_email": invoice.ClientEmail, "total": invoice.Total.StringFixed(2)},
	})

	return s.toResponse(invoice), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoice, err := s.findByID(ctx, id)
	if err != nil {
		return InvoiceResponse{}, err
	}
	return s.toResponse(*invoice), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repository.InvoiceListFilter{
		Status:      filter.Status,
		ClientEmail: filter.ClientEmail,
		Page:        filter.Page,
		Limit:       filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, s.toResponse(inv))
	}
	return result, total, nil
}

// UpdateInvoice allows administrative correction of amounts and descriptions
// before payment. Paid and cancelled invoices are immutable.
func (s *invoiceService) UpdateInvoice(ctx context.Context, actor Actor, id string, req UpdateInvoiceRequest) (InvoiceResponse, error) {
	invoice, err := s.findByID(ctx, id)
	if err != nil {
		return InvoiceResponse{}, err
	}

	if invoice.Status == model.InvoicePaid || invoice.Status == model.InvoiceCancelled {
		return InvoiceResponse{}, apperr.New(apperr.Conflict, "cannot edit a %s invoice", invoice.Status)
	}

	if req.ClientName != nil {
		invoice.ClientName = *req.ClientName
	}
	if req.Notes != nil {
		invoice.Notes = *req.Notes
	}
	if req.TaxRate != nil {
		taxRate, err := decimal.NewFromString(*req.TaxRate)
		if err != nil || taxRate.IsNegative() {
			return InvoiceResponse{}, apperr.New(apperr.Validation, "invalid tax_rate")
		}
		invoice.TaxRate = taxRate
	}
	if req.Items != nil {
		items, subtotal, err := buildItems(*req.Items)
		if err != nil {
			return InvoiceResponse{}, err
		}
		invoice.Items = items
		invoice.Subtotal = subtotal
	}

	invoice.TaxAmount = invoice.Subtotal.Mul(invoice.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	invoice.Total = invoice.Subtotal.Add(invoice.TaxAmount)

	// Replaced line items must land together with the recomputed totals.
	persist := s.invoiceRepo.Update
	if req.Items != nil {
		persist = s.invoiceRepo.UpdateWithItems
	}
	if err := persist(ctx, invoice); err != nil {
		return InvoiceResponse{}, s.updateError(err, invoice.InvoiceNo)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionUpdate,
		Entity:     model.EntityInvoice,
		EntityID:   invoice.ID.String(),
		EntityName: invoice.InvoiceNo,
		Details:    map[string]interface{}{"total": invoice.Total.StringFixed(2)},
	})

	return s.toResponse(*invoice), nil
}

func (s *invoiceService) UpdateStatus(ctx context.Context, actor Actor, id string, newStatus string) (InvoiceResponse, error) {
	invoice, err := s.findByID(ctx, id)
	if err != nil {
		return InvoiceResponse{}, err
	}

	previous := invoice.Status
	if err := s.applyStatus(invoice, newStatus); err != nil {
		return InvoiceResponse{}, err
	}

	if invoice.Status != previous {
		if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
			return InvoiceResponse{}, s.updateError(err, invoice.InvoiceNo)
		}

		s.audit.LogAction(ctx, AuditEntry{
			UserID:     actor.ID,
			UserEmail:  actor.Email,
			Action:     model.ActionUpdate,
			Entity:     model.EntityInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNo,
			Details:    map[string]interface{}{"from": previous, "to": invoice.Status},
		})
	}

	return s.toResponse(*invoice), nil
}

// EmailInvoice renders the invoice to PDF and dispatches it to the client.
// All-or-nothing: the draft→sent transition happens only after dispatch
// succeeds, so a delivery failure leaves the invoice untouched.
func (s *invoiceService) EmailInvoice(ctx context.Context, actor Actor, id string, message string) error {
	invoice, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	if invoice.Status == model.InvoiceCancelled {
		return apperr.New(apperr.Conflict, "cannot email a cancelled invoice")
	}

	document, err := s.renderer.RenderInvoice(invoice)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to render invoice")
	}

	if message == "" {
		message = fmt.Sprintf("Please find attached invoice %s for %s.", invoice.InvoiceNo, invoice.Total.StringFixed(2))
	}

	err = s.mail.Send(ctx, mailer.Message{
		To:      invoice.ClientEmail,
		Subject: "Invoice " + invoice.InvoiceNo,
		HTML:    fmt.Sprintf("<p>Dear %s,</p><p>%s</p>", invoice.ClientName, message),
		Attachments: []mailer.Attachment{
			{Filename: invoice.InvoiceNo + ".pdf", ContentType: "application/pdf", Content: document},
		},
	})
	if err != nil {
		return err
	}

	if invoice.Status == model.InvoiceDraft {
		if err := s.applyStatus(invoice, model.InvoiceSent); err != nil {
			return err
		}
		if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
			return s.updateError(err, invoice.InvoiceNo)
		}
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionUpdate,
		Entity:     model.EntityInvoice,
		EntityID:   invoice.ID.String(),
		EntityName: invoice.InvoiceNo,
		Details:    map[string]interface{}{"emailed_to": invoice.ClientEmail},
	})

	return nil
}

func (s *invoiceService) RenderInvoice(ctx context.Context, id string) ([]byte, string, error) {
	invoice, err := s.findByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	document, err := s.renderer.RenderInvoice(invoice)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Internal, err, "failed to render invoice")
	}
	return document, invoice.InvoiceNo, nil
}

// DeleteInvoice hard-deletes after capturing a snapshot for the audit trail.
// The snapshot read happens before deletion so the audit entry always carries
// the full final state of the removed invoice.
func (s *invoiceService) DeleteInvoice(ctx context.Context, actor Actor, id string) error {
	invoice, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	snapshot := map[string]interface{}{
		"invoice_no":   invoice.InvoiceNo,
		"client_name":  invoice.ClientName,
		"client_email": invoice.ClientEmail,
		"subtotal":     invoice.Subtotal.StringFixed(2),
		"tax_amount":   invoice.TaxAmount.StringFixed(2),
		"total":        invoice.Total.StringFixed(2),
		"status":       invoice.Status,
	}

	if err := s.invoiceRepo.Delete(ctx, invoice.ID); err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", invoice.InvoiceNo, err)
	}

	s.audit.LogAction(ctx, AuditEntry{
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Action:     model.ActionDelete,
		Entity:     model.EntityInvoice,
		EntityID:   invoice.ID.String(),
		EntityName: invoice.InvoiceNo,
		Details:    snapshot,
	})

	return nil
}

// MarkPaidByInvoiceNo applies a confirmed payment event to a linked invoice.
// Idempotent: a repeat event on a paid invoice is a no-op success.
func (s *invoiceService) MarkPaidByInvoiceNo(ctx context.Context, invoiceNo string) error {
	invoice, err := s.invoiceRepo.FindByInvoiceNo(ctx, invoiceNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "invoice %s not found", invoiceNo)
		}
		return err
	}

	if invoice.Status == model.InvoicePaid {
		return nil
	}

	if err := s.applyStatus(invoice, model.InvoicePaid); err != nil {
		return err
	}
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return s.updateError(err, invoice.InvoiceNo)
	}

	s.log.Info().Str("invoice_no", invoiceNo).Msg("invoice marked paid from payment event")
	return nil
}

// --- Helpers ---

// applyStatus enforces the status machine. Cancelled is terminal; paid is
// terminal for billing, so paid→cancelled is rejected. Timestamps are set
// only on first entry into sent/paid and never overwritten.
func (s *invoiceService) applyStatus(invoice *model.Invoice, newStatus string) error {
	if !model.ValidInvoiceStatus(newStatus) {
		return apperr.New(apperr.Conflict, "invalid status %q", newStatus)
	}

	if newStatus == invoice.Status {
		return nil
	}

	switch invoice.Status {
	case model.InvoiceCancelled:
		return apperr.New(apperr.Conflict, "invoice is cancelled")
	case model.InvoicePaid:
		return apperr.New(apperr.Conflict, "invoice is already paid")
	}

	now := s.now()
	switch newStatus {
	case model.InvoiceSent:
		if invoice.SentAt == nil {
			invoice.SentAt = &now
		}
	case model.InvoicePaid:
		if invoice.PaidAt == nil {
			invoice.PaidAt = &now
		}
	}

	invoice.Status = newStatus
	return nil
}

func (s *invoiceService) findByID(ctx context.Context, id string) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.New(apperr.Validation, "invalid invoice id")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "invoice not found")
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return invoice, nil
}

func (s *invoiceService) updateError(err error, invoiceNo string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.Conflict, "invoice %s was modified concurrently, retry", invoiceNo)
	}
	return fmt.Errorf("failed to update invoice %s: %w", invoiceNo, err)
}

func (s *invoiceService) generateInvoiceNo(ctx context.Context) (string, error) {
	today := s.now().Format("20060102")
	prefix := "INV-" + today + "-"

	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func buildItems(reqs []InvoiceItemRequest) ([]model.InvoiceItem, decimal.Decimal, error) {
	if len(reqs) == 0 {
		return nil, decimal.Zero, apperr.New(apperr.Validation, "invoice requires at least one line item")
	}

	items := make([]model.InvoiceItem, 0, len(reqs))
	subtotal := decimal.Zero
	for i, req := range reqs {
		if req.Quantity <= 0 {
			return nil, decimal.Zero, apperr.New(apperr.Validation, "item %d: quantity must be positive", i+1)
		}
		unitPrice, err := decimal.NewFromString(req.UnitPrice)
		if err != nil {
			return nil, decimal.Zero, apperr.New(apperr.Validation, "item %d: invalid unit_price", i+1)
		}
		if unitPrice.IsNegative() {
			return nil, decimal.Zero, apperr.New(apperr.Validation, "item %d: unit_price must not be negative", i+1)
		}

		amount := unitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
		items = append(items, model.InvoiceItem{
			Description: req.Description,
			Quantity:    req.Quantity,
			UnitPrice:   unitPrice,
			Amount:      amount,
		})
		subtotal = subtotal.Add(amount)
	}

	return items, subtotal, nil
}

// --- Mapping ---

func (s *invoiceService) toResponse(inv model.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, InvoiceItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Amount:      item.Amount.StringFixed(2),
		})
	}

	resp := InvoiceResponse{
		ID:          inv.ID.String(),
		InvoiceNo:   inv.InvoiceNo,
		ClientName:  inv.ClientName,
		ClientEmail: inv.ClientEmail,
		Items:       items,
		Subtotal:    inv.Subtotal.StringFixed(2),
		TaxRate:     inv.TaxRate.StringFixed(2),
		TaxAmount:   inv.TaxAmount.StringFixed(2),
		Total:       inv.Total.StringFixed(2),
		Status:      effectiveInvoiceStatus(&inv, s.now()),
		IssueDate:   inv.IssueDate.Format(time.RFC3339),
		DueDate:     inv.DueDate.Format(time.RFC3339),
		Notes:       inv.Notes,
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
	}

	if inv.SentAt != nil {
		v := inv.SentAt.Format(time.RFC3339)
		resp.SentAt = &v
	}
	if inv.PaidAt != nil {
		v := inv.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &v
	}

	return resp
}

// effectiveInvoiceStatus derives overdue on read: a draft or sent invoice
// past its due date is reported overdue without an eager write.
func effectiveInvoiceStatus(inv *model.Invoice, now time.Time) string {
	if (inv.Status == model.InvoiceDraft || inv.Status == model.InvoiceSent) && now.After(inv.DueDate) {
		return model.InvoiceOverdue
	}
	return inv.Status
}
