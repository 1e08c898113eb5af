package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Qualification captures how ready a prospect is to buy
type Qualification struct {
	PaymentMethod             PaymentMethod     `json:"paymentMethod"`
	CreditPreApproved         bool              `json:"creditPreApproved"`
	ExpectedPurchaseTimeframe PurchaseTimeframe `json:"expectedPurchaseTimeframe"`
	HasTradeIn                bool              `json:"hasTradeIn"`
	TradeInVehicle            *UsedVehicle      `json:"tradeInVehicle,omitempty"`
	InterestedInTestDrive     bool              `json:"interestedInTestDrive"`
	EstimatedMonthlyIncome    *Money            `json:"estimatedMonthlyIncome,omitempty"`
}

// Normalized validates enumerated labels and the trade-in description
func (q Qualification) Normalized() (Qualification, error) {
	out := q

	method, err := ParsePaymentMethod(string(q.PaymentMethod))
	if err != nil {
		return Qualification{}, err
	}
	out.PaymentMethod = method

	timeframe, err := ParsePurchaseTimeframe(string(q.ExpectedPurchaseTimeframe))
	if err != nil {
		return Qualification{}, err
	}
	out.ExpectedPurchaseTimeframe = timeframe

	if out.PaymentMethod != PaymentMethodFinancing {
		out.CreditPreApproved = false
	}

	if !q.HasTradeIn {
		out.TradeInVehicle = nil
		return out, nil
	}
	if q.TradeInVehicle == nil {
		return Qualification{}, NewValidationError("tradeInVehicle", ValidationReasonMissingRequiredField, "trade-in flagged without vehicle details")
	}
	vehicle, err := q.TradeInVehicle.Normalized(false)
	if err != nil {
		return Qualification{}, err
	}
	out.TradeInVehicle = &vehicle
	return out, nil
}

// Interaction is an immutable record of a contact with the prospect
type Interaction struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	LeadID       uuid.UUID       `json:"leadId" db:"lead_id"`
	Type         InteractionType `json:"type" db:"type"`
	Description  string          `json:"description" db:"description"`
	OccurredAt   time.Time       `json:"occurredAt" db:"occurred_at"`
	RegisteredAt time.Time       `json:"registeredAt" db:"registered_at"`
}

// Lead is a sales prospect tracked through the funnel
type Lead struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Email             Email          `json:"email"`
	Phone             Phone          `json:"phone"`
	Source            LeadSource     `json:"source"`
	Status            LeadStatus     `json:"status"`
	SalesPersonID     uuid.UUID      `json:"salesPersonId"`
	Interest          *Interest      `json:"interest,omitempty"`
	Qualification     *Qualification `json:"qualification,omitempty"`
	LastInteractionAt *time.Time     `json:"lastInteractionAt,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`

	// score is derived from Qualification and only changes through Qualify
	score Score
}

// NewLead creates a lead in status New
func NewLead(id uuid.UUID, name string, email Email, phone Phone, source LeadSource, salesPersonID uuid.UUID, interest *Interest, now time.Time) (*Lead, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", ValidationReasonMissingRequiredField, "")
	}
	if salesPersonID == uuid.Nil {
		return nil, NewValidationError("salesPersonId", ValidationReasonMissingRequiredField, "")
	}

	lead := &Lead{
		ID:            id,
		Name:          name,
		Email:         email,
		Phone:         phone,
		Source:        source,
		Status:        LeadStatusNew,
		SalesPersonID: salesPersonID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := lead.UpdateInterest(interest, now); err != nil {
		return nil, err
	}
	return lead, nil
}

// Score returns the derived priority tier
func (l *Lead) Score() Score {
	return l.score
}

// RestoreScore sets the persisted score when a storage adapter hydrates a lead.
// Application code changes the score only through Qualify.
func (l *Lead) RestoreScore(score Score) {
	l.score = score
}

// ChangeStatus moves the lead to target and returns the previous status.
// Manual transitions between any two canonical statuses are allowed.
func (l *Lead) ChangeStatus(target LeadStatus, now time.Time) (LeadStatus, error) {
	if !target.IsValid() {
		return l.Status, NewValidationError("status", ValidationReasonUnrecognizedValue, string(target))
	}
	old := l.Status
	l.Status = target
	l.UpdatedAt = now
	return old, nil
}

// Rename replaces the lead name
func (l *Lead) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("name", ValidationReasonMissingRequiredField, "")
	}
	l.Name = name
	l.UpdatedAt = now
	return nil
}

// ChangeEmail replaces the e-mail address
func (l *Lead) ChangeEmail(email Email, now time.Time) {
	l.Email = email
	l.UpdatedAt = now
}

// ChangePhone replaces the phone number
func (l *Lead) ChangePhone(phone Phone, now time.Time) {
	l.Phone = phone
	l.UpdatedAt = now
}

// UpdateInterest replaces the vehicle interest; nil clears it
func (l *Lead) UpdateInterest(interest *Interest, now time.Time) error {
	if interest == nil {
		l.Interest = nil
		l.UpdatedAt = now
		return nil
	}
	normalized, err := interest.Normalized()
	if err != nil {
		return err
	}
	l.Interest = &normalized
	l.UpdatedAt = now
	return nil
}

// RegisterInteraction records a contact. occurredAt cannot be later than now.
func (l *Lead) RegisterInteraction(id uuid.UUID, interactionType InteractionType, description string, occurredAt, now time.Time) (*Interaction, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, NewValidationError("description", ValidationReasonMissingRequiredField, "")
	}
	if occurredAt.IsZero() {
		return nil, NewValidationError("occurredAt", ValidationReasonMissingRequiredField, "")
	}
	if occurredAt.After(now) {
		return nil, NewValidationError("occurredAt", ValidationReasonOutOfRange, "interaction cannot be in the future")
	}

	interaction := &Interaction{
		ID:           id,
		LeadID:       l.ID,
		Type:         interactionType,
		Description:  description,
		OccurredAt:   occurredAt,
		RegisteredAt: now,
	}

	if l.LastInteractionAt == nil || occurredAt.After(*l.LastInteractionAt) {
		at := occurredAt
		l.LastInteractionAt = &at
	}
	l.UpdatedAt = now
	return interaction, nil
}

// Qualify stores the qualification record and recomputes the score
func (l *Lead) Qualify(q Qualification, scorer Scorer, now time.Time) error {
	normalized, err := q.Normalized()
	if err != nil {
		return err
	}
	l.Qualification = &normalized
	l.score = scorer.Score(normalized)
	l.UpdatedAt = now
	return nil
}

// Clone returns a deep copy of the lead
func (l *Lead) Clone() *Lead {
	c := *l
	if l.Interest != nil {
		interest := *l.Interest
		c.Interest = &interest
	}
	if l.Qualification != nil {
		q := *l.Qualification
		if q.TradeInVehicle != nil {
			vehicle := *q.TradeInVehicle
			q.TradeInVehicle = &vehicle
		}
		if q.EstimatedMonthlyIncome != nil {
			income := *q.EstimatedMonthlyIncome
			q.EstimatedMonthlyIncome = &income
		}
		c.Qualification = &q
	}
	if l.LastInteractionAt != nil {
		at := *l.LastInteractionAt
		c.LastInteractionAt = &at
	}
	return &c
}

// MarshalJSON includes the derived score and its response SLA
func (l *Lead) MarshalJSON() ([]byte, error) {
	type leadAlias Lead
	sla := l.score.SLA()
	return json.Marshal(struct {
		*leadAlias
		Score    Score  `json:"score,omitempty"`
		SLALabel string `json:"sla,omitempty"`
	}{
		leadAlias: (*leadAlias)(l),
		Score:     l.score,
		SLALabel:  sla.Label,
	})
}

// UnmarshalJSON restores the derived score written by MarshalJSON
func (l *Lead) UnmarshalJSON(data []byte) error {
	type leadAlias Lead
	aux := struct {
		*leadAlias
		Score Score `json:"score"`
	}{leadAlias: (*leadAlias)(l)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	l.score = aux.Score
	return nil
}
