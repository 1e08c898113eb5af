package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
)

func TestLeadCaptureService_Capture(t *testing.T) {
	env := newTestEnv(t)
	capture := NewLeadCaptureService(env.leads, NewMapper(defaultOwner))
	ctx := context.Background()

	result, err := capture.Capture(ctx, FormPayload{
		"nome":     "  Maria   da Silva ",
		"email":    " MARIA@Example.com",
		"telefone": "(21) 99876-5432",
		"source":   "instagram",
		"model":    "Corolla",
		"color":    "Prata",
		"message":  "Quero agendar um test-drive",
		"budget":   90000,
	})
	require.NoError(t, err)

	lead := result.Lead
	assert.Equal(t, "Maria da Silva", lead.Name)
	assert.Equal(t, models.Email("maria@example.com"), lead.Email)
	assert.Equal(t, models.Phone("21998765432"), lead.Phone)
	assert.Equal(t, models.LeadSourceInstagram, lead.Source)
	assert.Equal(t, defaultOwner, lead.SalesPersonID)
	require.NotNil(t, lead.Interest)
	assert.Equal(t, "Prata", lead.Interest.Color)
	require.NotNil(t, lead.LastInteractionAt)
	assert.Empty(t, result.OmittedAttributes)

	interactions, err := env.leads.ListInteractions(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, models.InteractionTypeNote, interactions[0].Type)
	assert.Equal(t, "Quero agendar um test-drive", interactions[0].Description)
}

func TestLeadCaptureService_ReportsOmittedAttributes(t *testing.T) {
	env := newTestEnv(t)
	capture := NewLeadCaptureService(env.leads, NewMapper(defaultOwner))

	payload := validForm()
	payload["source"] = "billboard"
	payload["sales_person_id"] = "not-a-uuid"

	result, err := capture.Capture(context.Background(), payload)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"source", "sales_person_id"}, result.OmittedAttributes)
	assert.Equal(t, models.LeadSourceWebsite, result.Lead.Source)
	assert.Nil(t, result.Lead.LastInteractionAt)
}

func TestLeadCaptureService_RejectsInvalidForms(t *testing.T) {
	tests := []struct {
		name  string
		owner uuid.UUID
		edit  func(p FormPayload)
		field string
	}{
		{"missing name", defaultOwner, func(p FormPayload) { delete(p, "name") }, "name"},
		{"bad email", defaultOwner, func(p FormPayload) { p["email"] = "maria.example.com" }, "email"},
		{"short phone", defaultOwner, func(p FormPayload) { p["phone"] = "12345" }, "phone"},
		{"no owner", uuid.Nil, func(FormPayload) {}, "sales_person_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			capture := NewLeadCaptureService(env.leads, NewMapper(tt.owner))
			payload := validForm()
			tt.edit(payload)

			_, err := capture.Capture(context.Background(), payload)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			page, err := env.leads.List(context.Background(), repository.LeadFilter{})
			require.NoError(t, err)
			assert.Zero(t, page.Total)
		})
	}
}
