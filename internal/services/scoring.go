package services

import (
	"github.com/shopspring/decimal"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// ScoringWeights is the point table used to rank qualified leads
type ScoringWeights struct {
	PaymentCash                 int
	PaymentFinancingPreApproved int
	PaymentFinancing            int
	PaymentConsortium           int
	PaymentLeasing              int

	TimeframeImmediate  int
	TimeframeUpTo15Days int
	TimeframeUpTo30Days int
	TimeframeOver30Days int

	TradeInWithServiceHistory int
	TradeInWithoutHistory     int
	TestDriveInterest         int

	// HighIncome is added when the optional monthly income reaches HighIncomeThreshold
	HighIncome          int
	HighIncomeThreshold decimal.Decimal
}

// ScoreCutoffs are the minimum points for each tier; anything below Silver is Bronze
type ScoreCutoffs struct {
	Diamond int
	Gold    int
	Silver  int
}

// DefaultScoringWeights is the production point table
var DefaultScoringWeights = ScoringWeights{
	PaymentCash:                 30,
	PaymentFinancingPreApproved: 30,
	PaymentFinancing:            20,
	PaymentConsortium:           10,
	PaymentLeasing:              10,

	TimeframeImmediate:  30,
	TimeframeUpTo15Days: 25,
	TimeframeUpTo30Days: 15,
	TimeframeOver30Days: 5,

	TradeInWithServiceHistory: 20,
	TradeInWithoutHistory:     10,
	TestDriveInterest:         10,

	HighIncome:          5,
	HighIncomeThreshold: decimal.NewFromInt(10000),
}

// DefaultScoreCutoffs maps points to tiers
var DefaultScoreCutoffs = ScoreCutoffs{Diamond: 80, Gold: 60, Silver: 40}

// ScoringService computes lead scores from qualification data
type ScoringService struct {
	weights ScoringWeights
	cutoffs ScoreCutoffs
}

// NewScoringService creates a ScoringService with the default tables
func NewScoringService() *ScoringService {
	return NewScoringServiceWithTables(DefaultScoringWeights, DefaultScoreCutoffs)
}

// NewScoringServiceWithTables creates a ScoringService with custom tables
func NewScoringServiceWithTables(weights ScoringWeights, cutoffs ScoreCutoffs) *ScoringService {
	return &ScoringService{weights: weights, cutoffs: cutoffs}
}

// Score implements models.Scorer
func (s *ScoringService) Score(q models.Qualification) models.Score {
	return s.Tier(s.Points(q))
}

// Points sums the weighted points for a qualification
func (s *ScoringService) Points(q models.Qualification) int {
	w := s.weights
	points := 0

	switch q.PaymentMethod {
	case models.PaymentMethodCash:
		points += w.PaymentCash
	case models.PaymentMethodFinancing:
		if q.CreditPreApproved {
			points += w.PaymentFinancingPreApproved
		} else {
			points += w.PaymentFinancing
		}
	case models.PaymentMethodConsortium:
		points += w.PaymentConsortium
	case models.PaymentMethodLeasing:
		points += w.PaymentLeasing
	}

	switch q.ExpectedPurchaseTimeframe {
	case models.PurchaseTimeframeImmediate:
		points += w.TimeframeImmediate
	case models.PurchaseTimeframeUpTo15Days:
		points += w.TimeframeUpTo15Days
	case models.PurchaseTimeframeUpTo30Days:
		points += w.TimeframeUpTo30Days
	case models.PurchaseTimeframeOver30Days:
		points += w.TimeframeOver30Days
	}

	if q.HasTradeIn && q.TradeInVehicle != nil {
		if q.TradeInVehicle.HasDealershipServiceHistory {
			points += w.TradeInWithServiceHistory
		} else {
			points += w.TradeInWithoutHistory
		}
	}

	if q.InterestedInTestDrive {
		points += w.TestDriveInterest
	}

	if q.EstimatedMonthlyIncome != nil && q.EstimatedMonthlyIncome.Amount().GreaterThanOrEqual(w.HighIncomeThreshold) {
		points += w.HighIncome
	}

	return points
}

// Tier maps points onto a score
func (s *ScoringService) Tier(points int) models.Score {
	switch {
	case points >= s.cutoffs.Diamond:
		return models.ScoreDiamond
	case points >= s.cutoffs.Gold:
		return models.ScoreGold
	case points >= s.cutoffs.Silver:
		return models.ScoreSilver
	default:
		return models.ScoreBronze
	}
}
