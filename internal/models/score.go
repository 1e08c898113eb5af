package models

import "time"

// Score is the priority tier derived from a lead's qualification
type Score string

const (
	// ScoreUnset means the lead was never qualified
	ScoreUnset   Score = ""
	ScoreDiamond Score = "Diamond"
	ScoreGold    Score = "Gold"
	ScoreSilver  Score = "Silver"
	ScoreBronze  Score = "Bronze"
)

// Rank orders tiers from Bronze (1) to Diamond (4); unset ranks 0
func (s Score) Rank() int {
	switch s {
	case ScoreDiamond:
		return 4
	case ScoreGold:
		return 3
	case ScoreSilver:
		return 2
	case ScoreBronze:
		return 1
	default:
		return 0
	}
}

// IsValid checks if the score is a known tier or unset
func (s Score) IsValid() bool {
	return s == ScoreUnset || s.Rank() > 0
}

// ResponseSLA is the expected first-response time for a tier
type ResponseSLA struct {
	Label string
	// Within is zero for best-effort tiers
	Within time.Duration
}

// scoreSLAs is the response-time expectation per tier
var scoreSLAs = map[Score]ResponseSLA{
	ScoreDiamond: {Label: "10 minutes", Within: 10 * time.Minute},
	ScoreGold:    {Label: "30 minutes", Within: 30 * time.Minute},
	ScoreSilver:  {Label: "2 hours", Within: 2 * time.Hour},
	ScoreBronze:  {Label: "best effort"},
}

// SLA returns the response-time expectation for the tier
func (s Score) SLA() ResponseSLA {
	if sla, ok := scoreSLAs[s]; ok {
		return sla
	}
	return ResponseSLA{}
}

// Scorer computes a score from qualification data. Implementations must be pure.
type Scorer interface {
	Score(q Qualification) Score
}
