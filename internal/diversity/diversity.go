// Package diversity computes saturation penalties from the rolling
// window of recently published items. Pure given a window snapshot, so
// the gate stays deterministic in tests.
package diversity

import (
	"NewsPublisher/internal/domain"
)

// Config sets the per-axis saturation thresholds as shares of the
// window, in [0,1]. Category and region are independent: too many
// politics stories is a different problem from too many stories about
// one region, and both axes are always evaluated.
type Config struct {
	CategoryThreshold float64
	RegionThreshold   float64
	// MaxAxisPenalty caps the penalty of one saturated axis.
	MaxAxisPenalty int
}

// DefaultConfig mirrors the production tuning: penalties start at 50%
// category share and 60% region share, 40 points each at full saturation.
func DefaultConfig() Config {
	return Config{
		CategoryThreshold: 0.5,
		RegionThreshold:   0.6,
		MaxAxisPenalty:    40,
	}
}

// Penalty is the tracker output, broken out per axis for gate reasons.
type Penalty struct {
	Category int
	Region   int
	Event    int
}

// Total sums the axes.
func (p Penalty) Total() int {
	return p.Category + p.Region + p.Event
}

// Tracker evaluates a candidate against a window snapshot.
type Tracker struct {
	cfg Config
}

// NewTracker builds a tracker with the given thresholds.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// PenaltyFor computes the candidate's saturation penalty within the
// window. Each axis ramps linearly from zero at its threshold to
// MaxAxisPenalty at a 100% share. Repeat coverage of the same event
// signature adds a stepped penalty on top.
func (t *Tracker) PenaltyFor(category, region, eventSignature string, window []domain.PublishedSummary) Penalty {
	if len(window) == 0 {
		return Penalty{}
	}

	var categoryCount, regionCount, eventCount int
	for _, item := range window {
		if item.Category == category {
			categoryCount++
		}
		if item.Region == region {
			regionCount++
		}
		if eventSignature != "" && item.EventSignature == eventSignature {
			eventCount++
		}
	}

	total := float64(len(window))
	return Penalty{
		Category: t.ramp(float64(categoryCount)/total, t.cfg.CategoryThreshold),
		Region:   t.ramp(float64(regionCount)/total, t.cfg.RegionThreshold),
		Event:    eventPenalty(eventCount),
	}
}

// ramp maps share in (threshold, 1] linearly onto (0, MaxAxisPenalty].
func (t *Tracker) ramp(share, threshold float64) int {
	if share <= threshold || threshold >= 1 {
		return 0
	}
	fraction := (share - threshold) / (1 - threshold)
	penalty := int(fraction * float64(t.cfg.MaxAxisPenalty))
	if penalty > t.cfg.MaxAxisPenalty {
		penalty = t.cfg.MaxAxisPenalty
	}
	if penalty == 0 {
		penalty = 1
	}
	return penalty
}

// eventPenalty steps up with repeat coverage of one event signature.
func eventPenalty(count int) int {
	switch {
	case count >= 5:
		return 40
	case count >= 3:
		return 25
	case count >= 2:
		return 15
	default:
		return 0
	}
}
