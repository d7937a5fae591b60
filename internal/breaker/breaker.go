// Package breaker isolates failing downstream dependencies. One Breaker
// guards one dependency; concurrent invokers each carry their own, which
// is enough to stop any single process from hammering a dead service.
package breaker

import (
	"sync"
	"time"

	"NewsPublisher/internal/domain"
)

// State of the breaker state machine.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String renders the state for logs and alerts.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Config tunes a breaker instance.
type Config struct {
	// FailureThreshold failures within FailureWindow open the breaker.
	FailureThreshold int
	FailureWindow    time.Duration
	// Cooldown before an open breaker allows a half-open trial call.
	Cooldown time.Duration
	// SuccessThreshold half-open successes close the breaker again.
	SuccessThreshold int
}

// DefaultConfig opens after 5 failures in 2 minutes, cools down 30s,
// and closes after one half-open success.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureWindow:    2 * time.Minute,
		Cooldown:         30 * time.Second,
		SuccessThreshold: 1,
	}
}

// OnOpen is invoked (outside the lock) whenever the breaker trips open.
type OnOpen func(name string)

// Breaker is a closed -> open -> half_open failure isolation machine.
type Breaker struct {
	mu           sync.Mutex
	name         string
	cfg          Config
	state        State
	failures     []time.Time
	successCount int
	openedAt     time.Time
	now          func() time.Time
	onOpen       OnOpen
}

// New builds a closed breaker; onOpen may be nil.
func New(name string, cfg Config, onOpen OnOpen) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = DefaultConfig().FailureWindow
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now, onOpen: onOpen}
}

// Name identifies the guarded dependency.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, applying the cooldown transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return b.state
}

// Do runs fn unless the breaker is open, in which case it short-circuits
// with domain.ErrCircuitOpen without touching the dependency. Outcomes
// are recorded regardless of state.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	b.maybeHalfOpen()
	if b.state == StateOpen {
		b.mu.Unlock()
		return domain.ErrCircuitOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	tripped := false
	if err != nil {
		tripped = b.recordFailure()
	} else {
		b.recordSuccess()
	}
	b.mu.Unlock()

	if tripped && b.onOpen != nil {
		b.onOpen(b.name)
	}
	return err
}

// maybeHalfOpen transitions open -> half_open once the cooldown elapses.
// Caller holds the lock.
func (b *Breaker) maybeHalfOpen() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.state = StateHalfOpen
		b.successCount = 0
	}
}

// recordFailure returns true when the breaker trips open. Caller holds
// the lock.
func (b *Breaker) recordFailure() bool {
	now := b.now()
	cutoff := now.Add(-b.cfg.FailureWindow)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = append(kept, now)

	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = now
		return true
	case StateClosed:
		if len(b.failures) >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.openedAt = now
			return true
		}
	}
	return false
}

// recordSuccess resets failures in closed state and closes the breaker
// after enough half-open trials. Caller holds the lock.
func (b *Breaker) recordSuccess() {
	switch b.state {
	case StateClosed:
		b.failures = b.failures[:0]
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failures = b.failures[:0]
		}
	}
}
