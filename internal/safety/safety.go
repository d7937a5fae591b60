// Package safety evaluates candidates against content policy. A battery
// of independent classifiers each contributes a penalty; penalties sum,
// clipped to [0,100].
package safety

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsPublisher/internal/ports"
)

// Verdict is the scorer output attached to the audit trail.
type Verdict struct {
	Pass       bool
	RiskScore  int
	Violations []string
}

// Classifier is a single policy check contributing an independent penalty.
type Classifier interface {
	Name() string
	Inspect(text string) (penalty int, violations []string)
}

// Registry keeps the classifier battery; order of registration is the
// order of evaluation.
type Registry struct {
	classifiers []Classifier
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a classifier to the battery.
func (r *Registry) Register(c Classifier) {
	r.classifiers = append(r.classifiers, c)
}

// Scorer runs the battery plus an optional remote risk scorer.
type Scorer struct {
	registry  *Registry
	remote    ports.RiskScorer
	threshold int
	logger    *slog.Logger
}

// NewScorer wires the registry and threshold; remote may be nil.
func NewScorer(registry *Registry, remote ports.RiskScorer, threshold int, logger *slog.Logger) *Scorer {
	return &Scorer{registry: registry, remote: remote, threshold: threshold, logger: logger}
}

// Evaluate scores the combined headline and body. The remote scorer
// fails open: its errors are logged and ignored.
func (s *Scorer) Evaluate(ctx context.Context, headline, body, source string) Verdict {
	text := strings.ToLower(headline + " " + body)

	risk := 0
	var violations []string
	for _, c := range s.registry.classifiers {
		penalty, found := c.Inspect(text)
		if penalty == 0 {
			continue
		}
		risk += penalty
		for _, v := range found {
			violations = append(violations, fmt.Sprintf("%s: %s", c.Name(), v))
		}
	}

	if penalty, found := inspectSource(source); penalty > 0 {
		risk += penalty
		violations = append(violations, found...)
	}

	if s.remote != nil {
		remote, err := s.remote.RiskScore(ctx, headline)
		if err != nil {
			if s.logger != nil {
				s.logger.Debug("remote risk score unavailable", "error", err)
			}
		} else if remote > 0 {
			risk += remote
			violations = append(violations, fmt.Sprintf("moderation: remote risk %d", remote))
		}
	}

	if risk > 100 {
		risk = 100
	}

	return Verdict{
		Pass:       risk < s.threshold,
		RiskScore:  risk,
		Violations: violations,
	}
}

// Threshold exposes the configured safety threshold for gate reasons.
func (s *Scorer) Threshold() int {
	return s.threshold
}
