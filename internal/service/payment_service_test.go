package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/gateway"
	"backend/internal/model"
	"backend/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPaymentService(t *testing.T) (*paymentService, *fakePaymentRepo, *fakeAuditRepo, *fakeMailer, *fakeGateway, *invoiceService) {
	t.Helper()
	paymentRepo := newFakePaymentRepo()
	auditRepo := &fakeAuditRepo{}
	mail := &fakeMailer{}
	gw := &fakeGateway{}

	invoiceRepo := newFakeInvoiceRepo()
	invSvc := NewInvoiceService(invoiceRepo, passthroughTx{}, NewAuditService(auditRepo), mail, &fakeRenderer{}).(*invoiceService)

	svc := NewPaymentService(paymentRepo, invSvc, NewAuditService(auditRepo), mail, gw, nil).(*paymentService)
	return svc, paymentRepo, auditRepo, mail, gw, invSvc
}

func TestCreatePaymentValidation(t *testing.T) {
	svc, _, _, _, _, _ := newTestPaymentService(t)

	_, err := svc.CreatePayment(context.Background(), testActor, CreatePaymentRequest{
		ClientEmail: "dana@example.com",
		ClientName:  "Dana",
		BaseAmount:  "-10.00",
		Description: "Coaching package",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))

	resp, err := svc.CreatePayment(context.Background(), testActor, CreatePaymentRequest{
		ClientEmail: "dana@example.com",
		ClientName:  "Dana",
		BaseAmount:  "0.00",
		Description: "Free intro session",
	})
	require.NoError(t, err, "zero amount is allowed")
	assert.Equal(t, model.PaymentPending, resp.Status)
}

func TestMarkCompletedIdempotent(t *testing.T) {
	svc, paymentRepo, _, _, _, _ := newTestPaymentService(t)
	ctx := context.Background()

	created, err := svc.CreatePayment(ctx, testActor, CreatePaymentRequest{
		ClientEmail: "dana@example.com",
		ClientName:  "Dana",
		BaseAmount:  "150.00",
		Description: "Coaching package",
	})
	require.NoError(t, err)

	first, err := svc.MarkCompleted(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, first.Status)
	require.NotNil(t, first.CompletedAt)
	writes := paymentRepo.updates

	second, err := svc.MarkCompleted(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.CompletedAt, *second.CompletedAt, "repeat completion must not move completedAt")
	assert.Equal(t, writes, paymentRepo.updates, "repeat completion must not write")
}

func TestUpdatePaymentNotifiesOnlyOnRealChange(t *testing.T) {
	svc, _, _, mail, _, _ := newTestPaymentService(t)
	ctx := context.Background()

	created, err := svc.CreatePayment(ctx, testActor, CreatePaymentRequest{
		ClientEmail: "dana@example.com",
		ClientName:  "Dana",
		BaseAmount:  "150.00",
		Description: "Coaching package",
	})
	require.NoError(t, err)

	// Same values: no notification.
	sameAmount := "150.00"
	sameDesc := "Coaching package"
	_, err = svc.UpdatePayment(ctx, testActor, created.ID, UpdatePaymentRequest{
		BaseAmount:  &sameAmount,
		Description: &sameDesc,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, mail.sentCount())

	// Notes-only edit: no notification either.
	notes := "follow up next week"
	_, err = svc.UpdatePayment(ctx, testActor, created.ID, UpdatePaymentRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, 0, mail.sentCount())

	// Changed amount: exactly one notification.
	newAmount := "175.00"
	updated, err := svc.UpdatePayment(ctx, testActor, created.ID, UpdatePaymentRequest{BaseAmount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, "175.00", updated.BaseAmount)
	require.Equal(t, 1, mail.sentCount())
	assert.Equal(t, "dana@example.com", mail.sent[0].To)
}

func TestUpdatePaymentNotificationFailureDoesNotFailUpdate(t *testing.T) {
	svc, _, _, mail, _, _ := newTestPaymentService(t)
	ctx := context.Background()

	created, err := svc.CreatePayment(ctx, testActor, CreatePaymentRequest{
		ClientEmail: "dana@example.com",
		ClientName:  "Dana",
		BaseAmount:  "150.00",
		Description: "Coaching package",
	})
	require.NoError(t, err)

	mail.fail = apperr.New(apperr.Delivery, "smtp refused")
	newAmount := "200.00"
	updated, err := svc.UpdatePayment(ctx, testActor, created.ID, UpdatePaymentRequest{BaseAmount: &newAmount})
	require.NoError(t, err, "notification is best-effort")
	assert.Equal(t, "200.00", updated.BaseAmount)
}

func TestUpdatePaymentRejectsNonPending(t *testing.T) {
	svc, _, _, _, _, _ := newTestPaymentService(t)
	ctx := context.Background()

	created, err := svc.CreatePayment(ctx, testActor, CreatePaymentRequest{
		ClientEmail: "dana@example.com",
		ClientName:  "Dana",
		BaseAmount:  "150.00",
		Description: "Coaching package",
	})
	require.NoError(t, err)
	_, err = svc.MarkCompleted(ctx, created.ID)
	require.NoError(t, err)

	newAmount := "175.00"
	_, err = svc.UpdatePayment(ctx, testActor, created.ID, UpdatePaymentRequest{BaseAmount: &newAmount})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestPaymentExpiryDerivedOnRead(t *testing.T) {
	svc, _, _, _, _, _ := newTestPaymentService(t)
	ctx := context.Background()

	created, err := svc.CreatePayment(ctx, testActor, CreatePaymentRequest{
		ClientEmail: "dana@example.com",
		ClientName:  "Dana",
		BaseAmount:  "150.00",
		Description: "Coaching package",
		ExpiresAt:   time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, created.Status)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	payments, _, err := svc.ListPayments(ctx, PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentExpired, payments[0].Status)
}

func TestCreateCheckoutStoresSession(t *testing.T) {
	svc, _, _, _, gw, _ := newTestPaymentService(t)
	ctx := context.Background()

	created, err := svc.CreatePayment(ctx, testActor, CreatePaymentRequest{
		ClientEmail: "dana@example.com",
		ClientName:  "Dana",
		BaseAmount:  "150.00",
		Description: "Coaching package",
	})
	require.NoError(t, err)

	gw.session = &gateway.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.example.com/cs_test_123"}
	resp, err := svc.CreateCheckout(ctx, testActor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example.com/cs_test_123", resp.PaymentLinkURL)
}

func TestWebhookCompletesPaymentAndLinkedInvoice(t *testing.T) {
	svc, _, _, _, gw, invSvc := newTestPaymentService(t)
	ctx := context.Background()

	invoice, err := invSvc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "150.00"}},
	})
	require.NoError(t, err)

	created, err := svc.CreatePayment(ctx, testActor, CreatePaymentRequest{
		ClientEmail: "dana@example.com",
		ClientName:  "Dana",
		BaseAmount:  "150.00",
		Description: "Coaching package",
		InvoiceNo:   invoice.InvoiceNo,
	})
	require.NoError(t, err)

	gw.session = &gateway.CheckoutSession{ID: "cs_test_456", URL: "https://checkout.example.com/cs_test_456"}
	_, err = svc.CreateCheckout(ctx, testActor, created.ID)
	require.NoError(t, err)

	gw.event = &gateway.PaymentEvent{Type: gateway.EventCheckoutCompleted, SessionID: "cs_test_456"}
	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig"))

	completed, err := svc.MarkCompleted(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, completed.Status)

	paidInvoice, err := invSvc.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, paidInvoice.Status)
}

func TestWebhookIgnoresUnknownSessionAndOtherEvents(t *testing.T) {
	svc, paymentRepo, _, _, gw, _ := newTestPaymentService(t)
	ctx := context.Background()

	gw.event = &gateway.PaymentEvent{Type: "invoice.finalized", SessionID: "cs_other"}
	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig"))

	gw.event = &gateway.PaymentEvent{Type: gateway.EventCheckoutCompleted, SessionID: "cs_unknown"}
	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig"), "unknown sessions are dropped, not errored")
	assert.Equal(t, 0, paymentRepo.updates)
}
