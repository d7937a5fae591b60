// Package ratelimit owns the platform-wide publish caps and per-process
// quotas for downstream API calls. The publish caps are enforced by the
// store inside the claim transaction, since a reservation checked outside
// that transaction would be a race; Caps here is configuration, not
// state. Quota is process-local and guards chatty downstream calls.
package ratelimit

import (
	"time"

	"github.com/RussellLuo/slidingwindow"
)

// Caps are the sliding-window publish limits shared across all invokers.
// Zero disables a cap.
type Caps struct {
	PerHour int
	PerDay  int
}

// Quota is an in-process sliding-window budget for one downstream
// dependency, keeping optional calls (remote moderation) inside the
// provider's free tier. Unlike the publish caps it is advisory by
// nature: each process owns its own budget.
type Quota struct {
	limiter *slidingwindow.Limiter
}

// NewQuota allows up to limit calls per window; nil when disabled.
func NewQuota(window time.Duration, limit int) *Quota {
	if limit <= 0 {
		return nil
	}
	lim, _ := slidingwindow.NewLimiter(window, int64(limit), func() (slidingwindow.Window, slidingwindow.StopFunc) {
		return slidingwindow.NewLocalWindow()
	})
	return &Quota{limiter: lim}
}

// Allow consumes one call from the budget. A nil quota always allows.
func (q *Quota) Allow() bool {
	if q == nil || q.limiter == nil {
		return true
	}
	return q.limiter.Allow()
}
