// Package gate combines safety and diversity verdicts into one composite
// score and an admit decision. Pure function of its inputs; no store
// access, no side effects.
package gate

import (
	"fmt"

	"NewsPublisher/internal/diversity"
	"NewsPublisher/internal/safety"
)

// Decision is the gate output persisted onto the candidate.
type Decision struct {
	Admit  bool
	Score  int
	Reason string
}

// Gate holds the admit threshold.
type Gate struct {
	admitThreshold int
}

// New builds a gate with the given admit threshold.
func New(admitThreshold int) *Gate {
	return &Gate{admitThreshold: admitThreshold}
}

// Decide computes score = 100 - risk - category - region - event
// penalties, floored at zero. A failed safety verdict is never admitted
// regardless of the composite score.
func (g *Gate) Decide(verdict safety.Verdict, penalty diversity.Penalty) Decision {
	score := 100 - verdict.RiskScore - penalty.Total()
	if score < 0 {
		score = 0
	}

	d := Decision{Score: score}

	switch {
	case !verdict.Pass:
		d.Reason = fmt.Sprintf("safety: risk %d at or above threshold", verdict.RiskScore)
	case score < g.admitThreshold:
		d.Reason = admitReason(verdict, penalty, score, g.admitThreshold)
	default:
		d.Admit = true
		d.Reason = "admitted"
	}

	return d
}

func admitReason(verdict safety.Verdict, penalty diversity.Penalty, score, threshold int) string {
	worst := "risk score"
	worstVal := verdict.RiskScore
	if penalty.Category > worstVal {
		worst, worstVal = "category saturation", penalty.Category
	}
	if penalty.Region > worstVal {
		worst, worstVal = "region saturation", penalty.Region
	}
	if penalty.Event > worstVal {
		worst, worstVal = "repeat event coverage", penalty.Event
	}
	return fmt.Sprintf("score %d below threshold %d, dominant penalty: %s (%d)", score, threshold, worst, worstVal)
}
