package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Evaluation is the appraisal of a trade-in vehicle offered against a proposal
type Evaluation struct {
	ID              uuid.UUID        `json:"id"`
	ProposalID      uuid.UUID        `json:"proposalId"`
	Vehicle         UsedVehicle      `json:"vehicle"`
	Status          EvaluationStatus `json:"status"`
	RequestedBy     uuid.UUID        `json:"requestedBy"`
	EvaluatedValue  *Money           `json:"evaluatedValue,omitempty"`
	AppraisedBy     *uuid.UUID       `json:"appraisedBy,omitempty"`
	AppraisedAt     *time.Time       `json:"appraisedAt,omitempty"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	RespondedAt     *time.Time       `json:"respondedAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// NewEvaluation creates an evaluation in Requested
func NewEvaluation(id, proposalID uuid.UUID, vehicle UsedVehicle, requestedBy uuid.UUID, now time.Time) (*Evaluation, error) {
	normalized, err := vehicle.Normalized(true)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		ID:          id,
		ProposalID:  proposalID,
		Vehicle:     normalized,
		Status:      EvaluationStatusRequested,
		RequestedBy: requestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// RegisterAppraisal stores the value supplied by the appraisal team
func (e *Evaluation) RegisterAppraisal(value Money, appraisedBy uuid.UUID, now time.Time) error {
	if e.Status != EvaluationStatusRequested {
		return NewDomainError(DomainCodeInvalidTransition, "evaluation %s is %s", e.ID, e.Status)
	}
	if value.IsZero() {
		return NewValidationError("evaluatedValue", ValidationReasonOutOfRange, "evaluated value must be greater than zero")
	}
	v := value
	by := appraisedBy
	at := now
	e.EvaluatedValue = &v
	e.AppraisedBy = &by
	e.AppraisedAt = &at
	e.Status = EvaluationStatusCompleted
	e.UpdatedAt = now
	return nil
}

// RegisterCustomerResponse records whether the customer took the offer. It returns the
// evaluated value when accepted so the caller can carry it into the proposal.
func (e *Evaluation) RegisterCustomerResponse(accepted bool, rejectionReason string, now time.Time) (Money, error) {
	if e.Status != EvaluationStatusCompleted {
		return ZeroMoney, NewDomainError(DomainCodeEvaluationNotCompleted, "evaluation %s is %s", e.ID, e.Status)
	}
	at := now
	e.RespondedAt = &at
	e.UpdatedAt = now

	if !accepted {
		e.Status = EvaluationStatusRejected
		e.RejectionReason = strings.TrimSpace(rejectionReason)
		return ZeroMoney, nil
	}
	if e.EvaluatedValue == nil {
		return ZeroMoney, NewDomainError(DomainCodeEvaluationNotCompleted, "evaluation %s has no evaluated value", e.ID)
	}
	e.Status = EvaluationStatusAccepted
	return *e.EvaluatedValue, nil
}

// Clone returns a deep copy of the evaluation
func (e *Evaluation) Clone() *Evaluation {
	c := *e
	if e.EvaluatedValue != nil {
		v := *e.EvaluatedValue
		c.EvaluatedValue = &v
	}
	c.AppraisedBy = cloneUUID(e.AppraisedBy)
	if e.AppraisedAt != nil {
		at := *e.AppraisedAt
		c.AppraisedAt = &at
	}
	if e.RespondedAt != nil {
		at := *e.RespondedAt
		c.RespondedAt = &at
	}
	return &c
}
