package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestInvoiceService(t *testing.T) (*invoiceService, *fakeInvoiceRepo, *fakeAuditRepo, *fakeMailer, *fakeRenderer) {
	t.Helper()
	invoiceRepo := newFakeInvoiceRepo()
	auditRepo := &fakeAuditRepo{}
	mail := &fakeMailer{}
	renderer := &fakeRenderer{}
	svc := NewInvoiceService(invoiceRepo, passthroughTx{}, NewAuditService(auditRepo), mail, renderer).(*invoiceService)
	return svc, invoiceRepo, auditRepo, mail, renderer
}

var testActor = Actor{ID: "6f1cb6a4-8a37-4bcb-b296-33f6e9d2f2be", Email: "admin@example.com"}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	svc, _, auditRepo, _, _ := newTestInvoiceService(t)

	resp, err := svc.CreateInvoice(context.Background(), testActor, CreateInvoiceRequest{
		ClientName:  "Dana Client",
		ClientEmail: "dana@example.com",
		Items: []InvoiceItemRequest{
			{Description: "Coaching session", Quantity: 2, UnitPrice: "50.00"},
		},
		TaxRate: "10",
	})
	require.NoError(t, err)

	assert.Equal(t, "100.00", resp.Subtotal)
	assert.Equal(t, "10.00", resp.TaxAmount)
	assert.Equal(t, "110.00", resp.Total)
	assert.Equal(t, model.InvoiceDraft, resp.Status)
	assert.Regexp(t, `^INV-\d{8}-\d{5}$`, resp.InvoiceNo)

	require.Equal(t, 1, auditRepo.count())
	assert.Equal(t, model.ActionCreate, auditRepo.last().Action)
}

func TestCreateInvoiceSequentialNumbers(t *testing.T) {
	svc, _, _, _, _ := newTestInvoiceService(t)

	req := CreateInvoiceRequest{
		ClientName:  "Dana Client",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "75.00"}},
	}

	first, err := svc.CreateInvoice(context.Background(), testActor, req)
	require.NoError(t, err)
	second, err := svc.CreateInvoice(context.Background(), testActor, req)
	require.NoError(t, err)

	prefix := "INV-" + time.Now().Format("20060102") + "-"
	assert.Equal(t, prefix+"00001", first.InvoiceNo)
	assert.Equal(t, prefix+"00002", second.InvoiceNo)
}

func TestCreateInvoiceRejectsBadItems(t *testing.T) {
	svc, _, auditRepo, _, _ := newTestInvoiceService(t)

	cases := []struct {
		name  string
		items []InvoiceItemRequest
	}{
		{"no items", nil},
		{"zero quantity", []InvoiceItemRequest{{Description: "x", Quantity: 0, UnitPrice: "10"}}},
		{"negative price", []InvoiceItemRequest{{Description: "x", Quantity: 1, UnitPrice: "-5"}}},
		{"garbage price", []InvoiceItemRequest{{Description: "x", Quantity: 1, UnitPrice: "ten"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateInvoice(context.Background(), testActor, CreateInvoiceRequest{
				ClientName:  "Dana",
				ClientEmail: "dana@example.com",
				Items:       tc.items,
			})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.Validation))
		})
	}

	assert.Equal(t, 0, auditRepo.count(), "rejected creates must not be audited")
}

func TestUpdateStatusLifecycle(t *testing.T) {
	svc, _, _, _, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)

	sent, err := svc.UpdateStatus(ctx, testActor, created.ID, model.InvoiceSent)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	paid, err := svc.UpdateStatus(ctx, testActor, created.ID, model.InvoicePaid)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, *sent.SentAt, *paid.SentAt, "sentAt must survive later transitions")
}

func TestUpdateStatusRejectsInvalidAndTerminal(t *testing.T) {
	svc, _, _, _, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, testActor, created.ID, "archived")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	_, err = svc.UpdateStatus(ctx, testActor, created.ID, model.InvoicePaid)
	require.NoError(t, err)

	// Paid is terminal: cancelling a paid invoice is rejected.
	_, err = svc.UpdateStatus(ctx, testActor, created.ID, model.InvoiceCancelled)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	svc, invoiceRepo, auditRepo, _, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)
	audited := auditRepo.count()

	resp, err := svc.UpdateStatus(ctx, testActor, created.ID, model.InvoiceDraft)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceDraft, resp.Status)
	assert.Equal(t, 0, invoiceRepo.updates, "no-op transition must not write")
	assert.Equal(t, audited, auditRepo.count(), "no-op transition must not be audited")
}

func TestEmailInvoiceFailureLeavesDraft(t *testing.T) {
	svc, invoiceRepo, _, mail, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)

	mail.fail = apperr.New(apperr.Delivery, "smtp refused")
	err = svc.EmailInvoice(ctx, testActor, created.ID, "")
	require.Error(t, err)

	reloaded, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceDraft, reloaded.Status, "delivery failure must not transition the invoice")
	assert.Nil(t, reloaded.SentAt)
	assert.Equal(t, 0, invoiceRepo.updates)
}

func TestEmailInvoiceSuccessTransitionsDraft(t *testing.T) {
	svc, _, _, mail, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.EmailInvoice(ctx, testActor, created.ID, ""))

	reloaded, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceSent, reloaded.Status)
	require.NotNil(t, reloaded.SentAt)

	require.Equal(t, 1, mail.sentCount())
	require.Len(t, mail.sent[0].Attachments, 1)
	assert.Equal(t, created.InvoiceNo+".pdf", mail.sent[0].Attachments[0].Filename)
}

func TestEmailInvoiceCancelledRejected(t *testing.T) {
	svc, _, _, mail, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, testActor, created.ID, model.InvoiceCancelled)
	require.NoError(t, err)

	err = svc.EmailInvoice(ctx, testActor, created.ID, "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
	assert.Equal(t, 0, mail.sentCount())
}

func TestUpdateInvoiceImmutableAfterPayment(t *testing.T) {
	svc, _, _, _, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, testActor, created.ID, model.InvoicePaid)
	require.NoError(t, err)

	name := "Renamed"
	_, err = svc.UpdateInvoice(ctx, testActor, created.ID, UpdateInvoiceRequest{ClientName: &name})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestUpdateInvoiceRecomputesTotals(t *testing.T) {
	svc, _, _, _, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
		TaxRate:     "10",
	})
	require.NoError(t, err)

	items := []InvoiceItemRequest{{Description: "Package", Quantity: 3, UnitPrice: "80.00"}}
	updated, err := svc.UpdateInvoice(ctx, testActor, created.ID, UpdateInvoiceRequest{Items: &items})
	require.NoError(t, err)

	assert.Equal(t, "240.00", updated.Subtotal)
	assert.Equal(t, "24.00", updated.TaxAmount)
	assert.Equal(t, "264.00", updated.Total)
}

func TestUpdateInvoiceReplacesStoredLineItems(t *testing.T) {
	svc, _, _, _, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)

	items := []InvoiceItemRequest{{Description: "Package", Quantity: 3, UnitPrice: "80.00"}}
	_, err = svc.UpdateInvoice(ctx, testActor, created.ID, UpdateInvoiceRequest{Items: &items})
	require.NoError(t, err)

	// A fresh read must show the replacement items, not the originals, and
	// their sum must equal the stored subtotal.
	got, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Package", got.Items[0].Description)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.Equal(t, "240.00", got.Items[0].Amount)
	assert.Equal(t, "240.00", got.Subtotal)
}

func TestDeleteInvoiceAuditsSnapshot(t *testing.T) {
	svc, _, auditRepo, _, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteInvoice(ctx, testActor, created.ID))

	_, err = svc.GetInvoice(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	entry := auditRepo.last()
	assert.Equal(t, model.ActionDelete, entry.Action)
	assert.Contains(t, entry.Details, created.InvoiceNo)
	assert.Contains(t, entry.Details, "100.00")
}

func TestDeleteMissingInvoiceNotAudited(t *testing.T) {
	svc, _, auditRepo, _, _ := newTestInvoiceService(t)

	err := svc.DeleteInvoice(context.Background(), testActor, "1f0e31c6-0000-4e5b-9f40-8f2c9b8b9f11")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.Equal(t, 0, auditRepo.count())
}

func TestMarkPaidByInvoiceNoIdempotent(t *testing.T) {
	svc, invoiceRepo, _, _, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkPaidByInvoiceNo(ctx, created.InvoiceNo))
	first, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, first.PaidAt)
	writes := invoiceRepo.updates

	require.NoError(t, svc.MarkPaidByInvoiceNo(ctx, created.InvoiceNo))
	second, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.PaidAt, *second.PaidAt, "repeat events must not move paidAt")
	assert.Equal(t, writes, invoiceRepo.updates, "repeat events must not write")
}

func TestOverdueDerivedOnRead(t *testing.T) {
	svc, _, _, _, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
		DueDate:     time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, testActor, created.ID, model.InvoiceSent)
	require.NoError(t, err)

	// Advance the clock past the due date; the stored status stays sent.
	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	reloaded, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceOverdue, reloaded.Status)

	// A paid invoice past due is never overdue.
	svc.now = time.Now
	_, err = svc.UpdateStatus(ctx, testActor, created.ID, model.InvoicePaid)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	paid, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, paid.Status)
}

func TestConcurrentModificationSurfacesConflict(t *testing.T) {
	svc, invoiceRepo, _, _, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, testActor, CreateInvoiceRequest{
		ClientName:  "Dana",
		ClientEmail: "dana@example.com",
		Items:       []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitPrice: "100"}},
	})
	require.NoError(t, err)

	// An optimistic-lock miss comes back from the repo as ErrRecordNotFound.
	invoiceRepo.failNext = gorm.ErrRecordNotFound
	_, err = svc.UpdateStatus(ctx, testActor, created.ID, model.InvoiceSent)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}
