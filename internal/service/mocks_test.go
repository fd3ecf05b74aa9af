package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"backend/internal/gateway"
	"backend/internal/mailer"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory fakes standing in for the gorm-backed repositories.

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*model.Invoice
	updates  int
	failNext error
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice)}
}

func (r *fakeInvoiceRepo) Create(_ context.Context, invoice *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	cp := *invoice
	r.invoices[invoice.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvoiceRepo) FindByInvoiceNo(_ context.Context, invoiceNo string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.InvoiceNo == invoiceNo {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvoiceRepo) List(_ context.Context, filter repository.InvoiceListFilter) ([]model.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func (r *fakeInvoiceRepo) Update(_ context.Context, invoice *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	existing, ok := r.invoices[invoice.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *invoice
	cp.Version++
	// Column update only; the items association stays as stored.
	cp.Items = existing.Items
	r.invoices[invoice.ID] = &cp
	r.updates++
	return nil
}

func (r *fakeInvoiceRepo) UpdateWithItems(_ context.Context, invoice *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	if _, ok := r.invoices[invoice.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *invoice
	cp.Version++
	cp.Items = append([]model.InvoiceItem(nil), invoice.Items...)
	r.invoices[invoice.ID] = &cp
	r.updates++
	return nil
}

func (r *fakeInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invoices, id)
	return nil
}

func (r *fakeInvoiceRepo) CountByPrefix(_ context.Context, prefix string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.invoices {
		if strings.HasPrefix(inv.InvoiceNo, prefix) {
			n++
		}
	}
	return n, nil
}

func (r *fakeInvoiceRepo) SumPaidBetween(_ context.Context, start, end time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, inv := range r.invoices {
		if inv.Status == model.InvoicePaid && inv.PaidAt != nil && !inv.PaidAt.Before(start) && inv.PaidAt.Before(end) {
			sum = sum.Add(inv.Total)
		}
	}
	return sum, nil
}

func (r *fakeInvoiceRepo) CountPaidBetween(_ context.Context, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.invoices {
		if inv.Status == model.InvoicePaid && inv.PaidAt != nil && !inv.PaidAt.Before(start) && inv.PaidAt.Before(end) {
			n++
		}
	}
	return n, nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*model.PendingPayment
	updates  int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*model.PendingPayment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *model.PendingPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	cp := *payment
	r.payments[payment.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PendingPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) FindByCheckoutSession(_ context.Context, sessionID string) (*model.PendingPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.CheckoutSessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) List(_ context.Context, filter repository.PaymentListFilter) ([]model.PendingPayment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.PendingPayment
	for _, p := range r.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) Update(_ context.Context, payment *model.PendingPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[payment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *payment
	r.payments[payment.ID] = &cp
	r.updates++
	return nil
}

func (r *fakePaymentRepo) SumCompletedBetween(_ context.Context, start, end time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, p := range r.payments {
		if p.Status == model.PaymentCompleted && p.CompletedAt != nil && !p.CompletedAt.Before(start) && p.CompletedAt.Before(end) {
			sum = sum.Add(p.BaseAmount)
		}
	}
	return sum, nil
}

func (r *fakePaymentRepo) CountCompletedBetween(_ context.Context, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.payments {
		if p.Status == model.PaymentCompleted {
			n++
		}
	}
	return n, nil
}

type fakeLeadRepo struct {
	mu    sync.Mutex
	leads map[uuid.UUID]*model.Lead
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: make(map[uuid.UUID]*model.Lead)}
}

func (r *fakeLeadRepo) Create(_ context.Context, lead *model.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	cp := *lead
	r.leads[lead.ID] = &cp
	return nil
}

func (r *fakeLeadRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLeadRepo) List(_ context.Context, status string, page, limit int) ([]model.Lead, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Lead
	for _, l := range r.leads {
		if status != "" && l.Status != status {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (r *fakeLeadRepo) Update(_ context.Context, lead *model.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lead
	r.leads[lead.ID] = &cp
	return nil
}

func (r *fakeLeadRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leads, id)
	return nil
}

func (r *fakeLeadRepo) CountBetween(_ context.Context, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.leads)), nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
	failLog error
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLog != nil {
		return r.failLog
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

// Recent returns newest-first, mirroring the real query's created_at desc.
func (r *fakeAuditRepo) Recent(_ context.Context, limit int) ([]model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditLog, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *fakeAuditRepo) List(_ context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditLog, len(r.entries))
	copy(out, r.entries)
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *fakeAuditRepo) last() model.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeRenderer struct {
	fail error
}

func (r *fakeRenderer) RenderInvoice(_ *model.Invoice) ([]byte, error) {
	if r.fail != nil {
		return nil, r.fail
	}
	return []byte("%PDF-1.4 fake"), nil
}

type fakeGateway struct {
	session *gateway.CheckoutSession
	event   *gateway.PaymentEvent
	fail    error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, _ gateway.CheckoutParams) (*gateway.CheckoutSession, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	return g.session, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, _ string) (*gateway.PaymentEvent, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	return g.event, nil
}

// passthroughTx runs the function without a real transaction.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
