package gate

import (
	"strings"
	"testing"

	"NewsPublisher/internal/diversity"
	"NewsPublisher/internal/safety"
)

func TestDecideAdmits(t *testing.T) {
	t.Parallel()

	g := New(55)
	d := g.Decide(safety.Verdict{Pass: true, RiskScore: 10}, diversity.Penalty{Category: 5})

	if !d.Admit {
		t.Fatalf("expected admit, reason %q", d.Reason)
	}
	if d.Score != 85 {
		t.Fatalf("score = %d, want 85", d.Score)
	}
}

func TestDecideFloorsAtZero(t *testing.T) {
	t.Parallel()

	g := New(55)
	d := g.Decide(safety.Verdict{Pass: false, RiskScore: 90}, diversity.Penalty{Category: 40, Region: 40})

	if d.Score != 0 {
		t.Fatalf("score = %d, want floor 0", d.Score)
	}
	if d.Admit {
		t.Fatalf("must not admit")
	}
}

func TestSafetyFailureNeverAdmitted(t *testing.T) {
	t.Parallel()

	// Perfect diversity cannot rescue a failed safety verdict.
	g := New(10)
	d := g.Decide(safety.Verdict{Pass: false, RiskScore: 60}, diversity.Penalty{})

	if d.Admit {
		t.Fatalf("failed safety verdict admitted with score %d", d.Score)
	}
	if !strings.Contains(d.Reason, "safety") {
		t.Fatalf("reason should cite safety, got %q", d.Reason)
	}
}

func TestDiversitySaturationRejection(t *testing.T) {
	t.Parallel()

	// Saturated category pushes a safe candidate under the threshold and
	// the reason names the saturation.
	g := New(55)
	d := g.Decide(safety.Verdict{Pass: true, RiskScore: 10}, diversity.Penalty{Category: 40})

	if d.Admit {
		t.Fatalf("expected rejection, score %d", d.Score)
	}
	if !strings.Contains(d.Reason, "category saturation") {
		t.Fatalf("reason should cite category saturation, got %q", d.Reason)
	}
}
