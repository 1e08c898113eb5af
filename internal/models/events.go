package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event on the wire
type EventType string

const (
	EventTypeSaleClosed                EventType = "sales.sale_closed"
	EventTypeDiscountApprovalRequested EventType = "sales.discount_approval_requested"
	EventTypeTestDriveScheduled        EventType = "sales.test_drive_scheduled"
	EventTypeTestDriveCompleted        EventType = "sales.test_drive_completed"
	EventTypeEvaluationRequested       EventType = "sales.evaluation_requested"
	EventTypeTradeInAccepted           EventType = "sales.trade_in_accepted"
)

// DomainEvent is a fact emitted by a state change
type DomainEvent interface {
	EventType() EventType
	AggregateID() uuid.UUID
	Metadata() EventMeta
}

// EventMeta is shared by every domain event
type EventMeta struct {
	EventID    uuid.UUID `json:"eventId"`
	ActorID    uuid.UUID `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewEventMeta stamps a new event
func NewEventMeta(actorID uuid.UUID, now time.Time) EventMeta {
	return EventMeta{EventID: uuid.New(), ActorID: actorID, OccurredAt: now}
}

// Metadata returns the event metadata
func (m EventMeta) Metadata() EventMeta { return m }

// SaleClosed hands a completed sale to the order/finance subsystem
type SaleClosed struct {
	EventMeta
	ProposalID    uuid.UUID     `json:"proposalId"`
	LeadID        uuid.UUID     `json:"leadId"`
	SalesPersonID uuid.UUID     `json:"salesPersonId"`
	Vehicle       VehicleTerms  `json:"vehicle"`
	VehiclePrice  Money         `json:"vehiclePrice"`
	Discount      Money         `json:"discount"`
	TradeInValue  Money         `json:"tradeInValue"`
	TotalValue    Money         `json:"totalValue"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

func (e SaleClosed) EventType() EventType   { return EventTypeSaleClosed }
func (e SaleClosed) AggregateID() uuid.UUID { return e.ProposalID }

// DiscountApprovalRequested notifies managers of a discount above the threshold
type DiscountApprovalRequested struct {
	EventMeta
	ProposalID    uuid.UUID `json:"proposalId"`
	SalesPersonID uuid.UUID `json:"salesPersonId"`
	Amount        Money     `json:"amount"`
	VehiclePrice  Money     `json:"vehiclePrice"`
	Reason        string    `json:"reason"`
}

func (e DiscountApprovalRequested) EventType() EventType   { return EventTypeDiscountApprovalRequested }
func (e DiscountApprovalRequested) AggregateID() uuid.UUID { return e.ProposalID }

// TestDriveScheduled is emitted when a vehicle is booked
type TestDriveScheduled struct {
	EventMeta
	TestDriveID   uuid.UUID `json:"testDriveId"`
	LeadID        uuid.UUID `json:"leadId"`
	VehicleID     uuid.UUID `json:"vehicleId"`
	SalesPersonID uuid.UUID `json:"salesPersonId"`
	ScheduledAt   time.Time `json:"scheduledAt"`
}

func (e TestDriveScheduled) EventType() EventType   { return EventTypeTestDriveScheduled }
func (e TestDriveScheduled) AggregateID() uuid.UUID { return e.TestDriveID }

// TestDriveCompleted is emitted when the checklist is captured
type TestDriveCompleted struct {
	EventMeta
	TestDriveID uuid.UUID `json:"testDriveId"`
	LeadID      uuid.UUID `json:"leadId"`
	VehicleID   uuid.UUID `json:"vehicleId"`
	Checklist   Checklist `json:"checklist"`
}

func (e TestDriveCompleted) EventType() EventType   { return EventTypeTestDriveCompleted }
func (e TestDriveCompleted) AggregateID() uuid.UUID { return e.TestDriveID }

// EvaluationRequested asks the appraisal team to value a trade-in
type EvaluationRequested struct {
	EventMeta
	EvaluationID uuid.UUID   `json:"evaluationId"`
	ProposalID   uuid.UUID   `json:"proposalId"`
	Vehicle      UsedVehicle `json:"vehicle"`
}

func (e EvaluationRequested) EventType() EventType   { return EventTypeEvaluationRequested }
func (e EvaluationRequested) AggregateID() uuid.UUID { return e.EvaluationID }

// TradeInAccepted is emitted when the customer accepts an appraisal
type TradeInAccepted struct {
	EventMeta
	EvaluationID uuid.UUID `json:"evaluationId"`
	ProposalID   uuid.UUID `json:"proposalId"`
	Value        Money     `json:"value"`
}

func (e TradeInAccepted) EventType() EventType   { return EventTypeTradeInAccepted }
func (e TradeInAccepted) AggregateID() uuid.UUID { return e.EvaluationID }

// OutboxStatus represents the delivery state of a recorded event
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusDelivered OutboxStatus = "delivered"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// IsTerminal returns true once the event will not be attempted again
func (s OutboxStatus) IsTerminal() bool {
	return s == OutboxStatusDelivered || s == OutboxStatusFailed
}

// OutboxEvent is a domain event stored for asynchronous publication
type OutboxEvent struct {
	ID          int64           `json:"id" db:"id"`
	EventID     uuid.UUID       `json:"event_id" db:"event_id"`
	Type        EventType       `json:"type" db:"event_type"`
	AggregateID uuid.UUID       `json:"aggregate_id" db:"aggregate_id"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	Status      OutboxStatus    `json:"status" db:"status"`
	Attempts    int             `json:"attempts" db:"attempts"`
	LastError   *string         `json:"last_error,omitempty" db:"last_error"`
	NextRunAt   time.Time       `json:"next_run_at" db:"next_run_at"`
	OccurredAt  time.Time       `json:"occurred_at" db:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// NewOutboxEvent serializes a domain event into a pending outbox record
func NewOutboxEvent(event DomainEvent) (*OutboxEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.EventType(), err)
	}
	meta := event.Metadata()
	return &OutboxEvent{
		EventID:     meta.EventID,
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Payload:     payload,
		Status:      OutboxStatusPending,
		NextRunAt:   meta.OccurredAt,
		OccurredAt:  meta.OccurredAt,
		CreatedAt:   meta.OccurredAt,
		UpdatedAt:   meta.OccurredAt,
	}, nil
}

// DeliveryReceipt is what a publisher reports back for an accepted event.
// StatusCode is zero for transports without one.
type DeliveryReceipt struct {
	StatusCode int
	Body       string
}

// DeliveryAttempt represents a single attempt to publish an outbox event
type DeliveryAttempt struct {
	ID             int64     `json:"id" db:"id"`
	EventID        int64     `json:"event_id" db:"event_id"`
	AttemptNo      int       `json:"attempt_no" db:"attempt_no"`
	Publisher      string    `json:"publisher" db:"publisher"`
	RequestedAt    time.Time `json:"requested_at" db:"requested_at"`
	ResponseStatus *int      `json:"response_status,omitempty" db:"response_status"`
	ResponseBody   *string   `json:"response_body,omitempty" db:"response_body"`
	ErrorMessage   *string   `json:"error_message,omitempty" db:"error_message"`
	Success        bool      `json:"success" db:"success"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// NewDeliveryAttempt creates a new delivery attempt for an outbox event
func NewDeliveryAttempt(eventID int64, attemptNo int, publisher string) *DeliveryAttempt {
	now := time.Now()
	return &DeliveryAttempt{
		EventID:     eventID,
		AttemptNo:   attemptNo,
		Publisher:   publisher,
		RequestedAt: now,
		Success:     false,
		CreatedAt:   now,
	}
}

// MarkSuccess marks the delivery attempt as successful
func (d *DeliveryAttempt) MarkSuccess(statusCode int, responseBody string) {
	d.Success = true
	d.ResponseStatus = &statusCode
	d.ResponseBody = &responseBody
}

// MarkFailure marks the delivery attempt as failed
func (d *DeliveryAttempt) MarkFailure(statusCode *int, errorMessage string) {
	d.Success = false
	d.ResponseStatus = statusCode
	d.ErrorMessage = &errorMessage
}
