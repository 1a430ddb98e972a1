package scoring

import "github.com/ferrandin/proctor/internal/violation"

// RiskLevel is the coarse classification of a final score.
type RiskLevel string

const (
	RiskGreen  RiskLevel = "Green"
	RiskYellow RiskLevel = "Yellow"
	RiskRed    RiskLevel = "Red"
)

const startingScore = 100.0

// Result is the write-once outcome of a finalized session.
type Result struct {
	Score          float64   `json:"final_score"`
	RiskLevel      RiskLevel `json:"risk_level"`
	ViolationCount int       `json:"violation_count"`
}

// Score folds the ordered violation log into a final score. Each record
// deducts its kind's penalty; the result never drops below zero.
func Score(records []violation.Record) float64 {
	score := startingScore
	for _, r := range records {
		score -= violation.Penalty(r.Kind)
	}
	if score < 0 {
		return 0
	}
	return score
}

// Classify maps a score to a risk tier. Boundaries are strict: exactly 85
// is Yellow and exactly 50 is Red.
func Classify(score float64) RiskLevel {
	switch {
	case score > 85:
		return RiskGreen
	case score > 50:
		return RiskYellow
	default:
		return RiskRed
	}
}

// Evaluate runs the full fold and classification over a session's log.
func Evaluate(records []violation.Record) Result {
	score := Score(records)
	return Result{
		Score:          score,
		RiskLevel:      Classify(score),
		ViolationCount: len(records),
	}
}
