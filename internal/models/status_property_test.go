package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: any label that is neither canonical nor a legacy alias is rejected with a
// ValidationError and leaves the lead untouched.
func TestProperty_UnrecognizedStatusNeverMutates(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	isKnown := func(label string) bool {
		_, err := ParseLeadStatus(label)
		return err == nil
	}

	properties.Property("unrecognized labels fail validation without mutation", prop.ForAll(
		func(label string) bool {
			lead := &Lead{ID: uuid.New(), Status: LeadStatusInNegotiation, UpdatedAt: testNow}

			status, err := ParseLeadStatus(label)
			if err == nil {
				return false
			}
			if !IsValidationError(err) {
				return false
			}
			if _, err := lead.ChangeStatus(status, testNow.Add(time.Hour)); !IsValidationError(err) {
				return false
			}
			return lead.Status == LeadStatusInNegotiation && lead.UpdatedAt.Equal(testNow)
		},
		gen.AnyString().SuchThat(func(s string) bool { return !isKnown(s) }),
	))

	properties.Property("aliases and canonical labels normalize to canonical statuses", prop.ForAll(
		func(label string, upper bool) bool {
			if upper {
				label = strings.ToUpper(label)
			}
			status, err := ParseLeadStatus("  " + label + " ")
			return err == nil && status.IsValid()
		},
		gen.OneConstOf("New", "InContact", "InNegotiation", "TestDriveScheduled",
			"ProposalSent", "Converted", "Lost", "Contacted", "Qualified", "NotQualified"),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
