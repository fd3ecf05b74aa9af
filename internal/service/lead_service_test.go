package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLeadService(t *testing.T) (LeadService, *fakeLeadRepo, *fakeAuditRepo) {
	t.Helper()
	leadRepo := newFakeLeadRepo()
	auditRepo := &fakeAuditRepo{}
	return NewLeadService(leadRepo, NewAuditService(auditRepo), nil), leadRepo, auditRepo
}

func TestCreateLeadDefaults(t *testing.T) {
	svc, _, auditRepo := newTestLeadService(t)

	lead, err := svc.CreateLead(context.Background(), CreateLeadRequest{
		Name:    "Prospect",
		Email:   "prospect@example.com",
		Message: "Interested in executive coaching",
	})
	require.NoError(t, err)
	assert.Equal(t, model.LeadNew, lead.Status)
	assert.Equal(t, "contact_form", lead.Source)

	// Public submissions carry no actor and are not audited.
	assert.Equal(t, 0, auditRepo.count())
}

func TestUpdateLeadValidatesStatus(t *testing.T) {
	svc, _, auditRepo := newTestLeadService(t)

	created, err := svc.CreateLead(context.Background(), CreateLeadRequest{
		Name:  "Prospect",
		Email: "prospect@example.com",
	})
	require.NoError(t, err)

	bogus := "qualified"
	_, err = svc.UpdateLead(context.Background(), testActor, created.ID, UpdateLeadRequest{Status: &bogus})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))

	converted := model.LeadConverted
	updated, err := svc.UpdateLead(context.Background(), testActor, created.ID, UpdateLeadRequest{Status: &converted})
	require.NoError(t, err)
	assert.Equal(t, model.LeadConverted, updated.Status)
	assert.Equal(t, 1, auditRepo.count())
}

func TestDeleteLeadAudited(t *testing.T) {
	svc, leadRepo, auditRepo := newTestLeadService(t)

	created, err := svc.CreateLead(context.Background(), CreateLeadRequest{
		Name:  "Prospect",
		Email: "prospect@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLead(context.Background(), testActor, created.ID))
	assert.Empty(t, leadRepo.leads)

	entry := auditRepo.last()
	assert.Equal(t, model.ActionDelete, entry.Action)
	assert.Equal(t, model.EntityLead, entry.Entity)
}
