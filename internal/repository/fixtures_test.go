package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// fixedScorer assigns the same tier to every qualification
type fixedScorer models.Score

func (s fixedScorer) Score(models.Qualification) models.Score { return models.Score(s) }

var testSalesPersonID = uuid.MustParse("7f1d1b0e-3c51-4a44-9a3c-2b2f2f0d5a11")

func newTestLead(t *testing.T, name string, createdAt time.Time) *models.Lead {
	t.Helper()
	lead, err := models.NewLead(
		uuid.New(), name, models.Email("lead@example.com"), models.Phone("+5511987654321"),
		models.LeadSourceWebsite, testSalesPersonID, &models.Interest{Model: "Corolla"}, createdAt,
	)
	if err != nil {
		t.Fatalf("Failed to build lead: %v", err)
	}
	return lead
}

func qualify(t *testing.T, lead *models.Lead, score models.Score) {
	t.Helper()
	q := models.Qualification{
		PaymentMethod:             models.PaymentMethodCash,
		ExpectedPurchaseTimeframe: models.PurchaseTimeframeImmediate,
		InterestedInTestDrive:     true,
	}
	if err := lead.Qualify(q, fixedScorer(score), lead.CreatedAt); err != nil {
		t.Fatalf("Failed to qualify lead: %v", err)
	}
}

func newTestProposal(t *testing.T, leadID uuid.UUID, createdAt time.Time) *models.Proposal {
	t.Helper()
	proposal, err := models.NewProposal(
		uuid.New(), leadID, testSalesPersonID,
		models.VehicleTerms{Model: "Corolla", Trim: "XEi", Year: time.Now().Year()},
		models.MustMoney("150000.00"),
		models.PaymentTerms{Method: models.PaymentMethodCash},
		createdAt,
	)
	if err != nil {
		t.Fatalf("Failed to build proposal: %v", err)
	}
	return proposal
}

func newTestDrive(t *testing.T, leadID, vehicleID uuid.UUID, scheduledAt time.Time) *models.TestDrive {
	t.Helper()
	testDrive, err := models.NewTestDrive(uuid.New(), leadID, vehicleID, testSalesPersonID, scheduledAt, "", scheduledAt.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Failed to build test-drive: %v", err)
	}
	return testDrive
}

func newTestEvaluation(t *testing.T, proposalID uuid.UUID, createdAt time.Time) *models.Evaluation {
	t.Helper()
	vehicle := models.UsedVehicle{
		Brand:     "Honda",
		Model:     "Civic",
		Year:      2018,
		Mileage:   64000,
		Plate:     models.LicensePlate("ABC1D23"),
		Condition: models.VehicleConditionGood,
	}
	evaluation, err := models.NewEvaluation(uuid.New(), proposalID, vehicle, testSalesPersonID, createdAt)
	if err != nil {
		t.Fatalf("Failed to build evaluation: %v", err)
	}
	return evaluation
}

func testDriveScheduled(testDrive *models.TestDrive) models.DomainEvent {
	return models.TestDriveScheduled{
		EventMeta:     models.NewEventMeta(testDrive.SalesPersonID, testDrive.CreatedAt),
		TestDriveID:   testDrive.ID,
		LeadID:        testDrive.LeadID,
		VehicleID:     testDrive.VehicleID,
		SalesPersonID: testDrive.SalesPersonID,
		ScheduledAt:   testDrive.ScheduledAt,
	}
}
