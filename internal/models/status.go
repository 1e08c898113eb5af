package models

import "strings"

// LeadStatus represents the position of a lead in the sales funnel
type LeadStatus string

const (
	// LeadStatusNew indicates the lead was just captured and nobody has reached out yet
	LeadStatusNew LeadStatus = "New"

	// LeadStatusInContact indicates a sales person is talking to the prospect
	LeadStatusInContact LeadStatus = "InContact"

	// LeadStatusInNegotiation indicates terms are being discussed
	LeadStatusInNegotiation LeadStatus = "InNegotiation"

	// LeadStatusTestDriveScheduled indicates a test-drive has been booked
	LeadStatusTestDriveScheduled LeadStatus = "TestDriveScheduled"

	// LeadStatusProposalSent indicates a priced proposal exists for the lead
	LeadStatusProposalSent LeadStatus = "ProposalSent"

	// LeadStatusConverted indicates a proposal was closed and the sale completed
	LeadStatusConverted LeadStatus = "Converted"

	// LeadStatusLost indicates the prospect gave up. Terminal, but the lead is kept.
	LeadStatusLost LeadStatus = "Lost"
)

// AllLeadStatuses lists the canonical statuses in funnel order
var AllLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusInContact,
	LeadStatusInNegotiation,
	LeadStatusTestDriveScheduled,
	LeadStatusProposalSent,
	LeadStatusConverted,
	LeadStatusLost,
}

// legacyLeadStatusAliases maps labels still sent by older clients onto the canonical set
var legacyLeadStatusAliases = map[string]LeadStatus{
	"contacted":    LeadStatusInContact,
	"qualified":    LeadStatusInNegotiation,
	"notqualified": LeadStatusLost,
}

// IsValid checks if the status is one of the canonical values
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusInContact, LeadStatusInNegotiation,
		LeadStatusTestDriveScheduled, LeadStatusProposalSent,
		LeadStatusConverted, LeadStatusLost:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status ends the funnel
func (s LeadStatus) IsTerminal() bool {
	return s == LeadStatusConverted || s == LeadStatusLost
}

// ParseLeadStatus normalizes a canonical or legacy label into a canonical status.
// Matching ignores case and surrounding whitespace; aliases are never returned as-is.
func ParseLeadStatus(label string) (LeadStatus, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	for _, status := range AllLeadStatuses {
		if strings.ToLower(string(status)) == key {
			return status, nil
		}
	}
	if status, ok := legacyLeadStatusAliases[key]; ok {
		return status, nil
	}
	return "", NewValidationError("status", ValidationReasonUnrecognizedValue, label)
}

// ProposalStatus represents the negotiation state of a proposal
type ProposalStatus string

const (
	ProposalStatusAwaitingCustomer              ProposalStatus = "AwaitingCustomer"
	ProposalStatusInNegotiation                 ProposalStatus = "InNegotiation"
	ProposalStatusAwaitingUsedVehicleEvaluation ProposalStatus = "AwaitingUsedVehicleEvaluation"
	ProposalStatusAwaitingDiscountApproval      ProposalStatus = "AwaitingDiscountApproval"
	ProposalStatusApproved                      ProposalStatus = "Approved"
	ProposalStatusClosed                        ProposalStatus = "Closed"
	ProposalStatusLost                          ProposalStatus = "Lost"
)

// IsValid checks if the status is a known proposal status
func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusAwaitingCustomer, ProposalStatusInNegotiation,
		ProposalStatusAwaitingUsedVehicleEvaluation, ProposalStatusAwaitingDiscountApproval,
		ProposalStatusApproved, ProposalStatusClosed, ProposalStatusLost:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for Closed and Lost
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalStatusClosed || s == ProposalStatusLost
}

// ParseProposalStatus validates a proposal status label
func ParseProposalStatus(label string) (ProposalStatus, error) {
	status := ProposalStatus(strings.TrimSpace(label))
	if !status.IsValid() {
		return "", NewValidationError("status", ValidationReasonUnrecognizedValue, label)
	}
	return status, nil
}

// TestDriveStatus represents the state of a test-drive booking
type TestDriveStatus string

const (
	TestDriveStatusScheduled TestDriveStatus = "Scheduled"
	TestDriveStatusCompleted TestDriveStatus = "Completed"
	TestDriveStatusCancelled TestDriveStatus = "Cancelled"
	TestDriveStatusNoShow    TestDriveStatus = "NoShow"
)

// IsValid checks if the status is a known test-drive status
func (s TestDriveStatus) IsValid() bool {
	switch s {
	case TestDriveStatusScheduled, TestDriveStatusCompleted,
		TestDriveStatusCancelled, TestDriveStatusNoShow:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for every status except Scheduled
func (s TestDriveStatus) IsTerminal() bool {
	return s != TestDriveStatusScheduled
}

// ParseTestDriveStatus validates a test-drive status label
func ParseTestDriveStatus(label string) (TestDriveStatus, error) {
	status := TestDriveStatus(strings.TrimSpace(label))
	if !status.IsValid() {
		return "", NewValidationError("status", ValidationReasonUnrecognizedValue, label)
	}
	return status, nil
}

// EvaluationStatus represents the state of a trade-in appraisal
type EvaluationStatus string

const (
	EvaluationStatusRequested EvaluationStatus = "Requested"
	EvaluationStatusCompleted EvaluationStatus = "Completed"
	EvaluationStatusAccepted  EvaluationStatus = "Accepted"
	EvaluationStatusRejected  EvaluationStatus = "Rejected"
)

// IsTerminal returns true once the customer answered
func (s EvaluationStatus) IsTerminal() bool {
	return s == EvaluationStatusAccepted || s == EvaluationStatusRejected
}
