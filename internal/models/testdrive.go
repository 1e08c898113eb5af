package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TestDriveSlotDuration is how long a booking keeps the vehicle busy
const TestDriveSlotDuration = time.Hour

// Checklist is captured when a test-drive is completed
type Checklist struct {
	InitialMileage     int       `json:"initialMileage"`
	FinalMileage       int       `json:"finalMileage"`
	FuelLevel          FuelLevel `json:"fuelLevel"`
	VisualObservations string    `json:"visualObservations,omitempty"`
}

// Normalized validates mileage and fuel level
func (c Checklist) Normalized() (Checklist, error) {
	out := c
	if c.InitialMileage < 0 {
		return Checklist{}, NewValidationError("initialMileage", ValidationReasonOutOfRange, "mileage cannot be negative")
	}
	if c.FinalMileage < c.InitialMileage {
		return Checklist{}, NewValidationError("finalMileage", ValidationReasonOutOfRange, "final mileage is lower than initial mileage")
	}
	level, err := ParseFuelLevel(string(c.FuelLevel))
	if err != nil {
		return Checklist{}, err
	}
	out.FuelLevel = level
	out.VisualObservations = strings.TrimSpace(c.VisualObservations)
	return out, nil
}

// TestDrive is a booking of one vehicle by one lead
type TestDrive struct {
	ID                 uuid.UUID       `json:"id"`
	LeadID             uuid.UUID       `json:"leadId"`
	VehicleID          uuid.UUID       `json:"vehicleId"`
	SalesPersonID      uuid.UUID       `json:"salesPersonId"`
	Status             TestDriveStatus `json:"status"`
	ScheduledAt        time.Time       `json:"scheduledAt"`
	Notes              string          `json:"notes,omitempty"`
	Checklist          *Checklist      `json:"checklist,omitempty"`
	CustomerFeedback   string          `json:"customerFeedback,omitempty"`
	CompletedBy        *uuid.UUID      `json:"completedBy,omitempty"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	CancelledBy        *uuid.UUID      `json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// NewTestDrive creates a booking in Scheduled. Bookings in the past are rejected.
func NewTestDrive(id, leadID, vehicleID, salesPersonID uuid.UUID, scheduledAt time.Time, notes string, now time.Time) (*TestDrive, error) {
	if vehicleID == uuid.Nil {
		return nil, NewValidationError("vehicleId", ValidationReasonMissingRequiredField, "")
	}
	if salesPersonID == uuid.Nil {
		return nil, NewValidationError("salesPersonId", ValidationReasonMissingRequiredField, "")
	}
	if scheduledAt.IsZero() {
		return nil, NewValidationError("scheduledAt", ValidationReasonMissingRequiredField, "")
	}
	if scheduledAt.Before(now) {
		return nil, NewValidationError("scheduledAt", ValidationReasonOutOfRange, "cannot schedule a test-drive in the past")
	}
	return &TestDrive{
		ID:            id,
		LeadID:        leadID,
		VehicleID:     vehicleID,
		SalesPersonID: salesPersonID,
		Status:        TestDriveStatusScheduled,
		ScheduledAt:   scheduledAt,
		Notes:         strings.TrimSpace(notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// EndsAt returns the end of the booked slot
func (t *TestDrive) EndsAt() time.Time {
	return t.ScheduledAt.Add(TestDriveSlotDuration)
}

// Overlaps reports whether the booked slot intersects [start, end)
func (t *TestDrive) Overlaps(start, end time.Time) bool {
	return t.ScheduledAt.Before(end) && start.Before(t.EndsAt())
}

func (t *TestDrive) ensureScheduled() error {
	if t.Status != TestDriveStatusScheduled {
		return NewDomainError(DomainCodeInvalidTransition, "test-drive %s is %s", t.ID, t.Status)
	}
	return nil
}

// Complete records the checklist and closes the booking
func (t *TestDrive) Complete(checklist Checklist, feedback string, completedBy uuid.UUID, now time.Time) error {
	if err := t.ensureScheduled(); err != nil {
		return err
	}
	if now.Before(t.ScheduledAt) {
		return NewDomainError(DomainCodeTestDriveNotDue, "test-drive %s is scheduled for %s", t.ID, t.ScheduledAt.Format(time.RFC3339))
	}
	normalized, err := checklist.Normalized()
	if err != nil {
		return err
	}
	by := completedBy
	at := now
	t.Checklist = &normalized
	t.CustomerFeedback = strings.TrimSpace(feedback)
	t.CompletedBy = &by
	t.CompletedAt = &at
	t.Status = TestDriveStatusCompleted
	t.UpdatedAt = now
	return nil
}

// Cancel aborts the booking
func (t *TestDrive) Cancel(reason string, cancelledBy uuid.UUID, now time.Time) error {
	if err := t.ensureScheduled(); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("reason", ValidationReasonMissingRequiredField, "")
	}
	by := cancelledBy
	at := now
	t.CancellationReason = reason
	t.CancelledBy = &by
	t.CancelledAt = &at
	t.Status = TestDriveStatusCancelled
	t.UpdatedAt = now
	return nil
}

// MarkNoShow records that the customer did not turn up
func (t *TestDrive) MarkNoShow(now time.Time) error {
	if err := t.ensureScheduled(); err != nil {
		return err
	}
	if now.Before(t.ScheduledAt) {
		return NewDomainError(DomainCodeTestDriveNotDue, "test-drive %s is scheduled for %s", t.ID, t.ScheduledAt.Format(time.RFC3339))
	}
	t.Status = TestDriveStatusNoShow
	t.UpdatedAt = now
	return nil
}

// Clone returns a deep copy of the test-drive
func (t *TestDrive) Clone() *TestDrive {
	c := *t
	if t.Checklist != nil {
		checklist := *t.Checklist
		c.Checklist = &checklist
	}
	c.CompletedBy = cloneUUID(t.CompletedBy)
	c.CancelledBy = cloneUUID(t.CancelledBy)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.CancelledAt != nil {
		at := *t.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}
