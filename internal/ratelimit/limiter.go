// Package ratelimit meters simulation work per caller. Each request is
// charged its cost in sample steps against a token bucket for the caller's
// key, so one long multi-replicate run spends what many short ones would.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var (
	// ErrRateLimited means the caller's bucket cannot cover the charge yet.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrOverBudget means a single request costs more than a full bucket
	// holds. Waiting will not help; the request has to shrink.
	ErrOverBudget = errors.New("request exceeds rate limit budget")
)

// LimitError reports a rejected charge and when it would fit.
type LimitError struct {
	Op         Op
	Cost       int
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	if e.RetryAfter <= 0 {
		return fmt.Sprintf("%s for %s (%d steps)", ErrRateLimited, e.Op, e.Cost)
	}
	return fmt.Sprintf("%s for %s (%d steps), retry in %s", ErrRateLimited, e.Op, e.Cost, e.RetryAfter.Round(time.Second))
}

func (e *LimitError) Unwrap() error { return ErrRateLimited }

// Budget sizes a bucket in sample steps.
type Budget struct {
	Rate  float64 // steps refilled per second
	Burst int     // bucket capacity and the largest single charge
}

// maxKeys is how many buckets a Limiter holds before it drops idle ones.
const maxKeys = 1024

// Limiter keeps one token bucket per key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	budget  Budget
	maxKeys int
	nowFunc func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter returns a limiter whose buckets start full.
func NewLimiter(b Budget) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		budget:  b,
		maxKeys: maxKeys,
		nowFunc: time.Now,
	}
}

// Budget returns the limiter's bucket size and refill rate.
func (l *Limiter) Budget() Budget { return l.budget }

// Take removes cost tokens from key's bucket. When the bucket holds fewer,
// nothing is taken and Take returns false with the wait until it would hold
// enough. The wait is zero when the bucket never refills.
func (l *Limiter) Take(key string, cost int) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			l.prune(now)
		}
		b = &bucket{tokens: float64(l.budget.Burst), lastCheck: now}
		l.buckets[key] = b
	}
	l.refill(b, now)

	need := float64(cost)
	if b.tokens < need {
		if l.budget.Rate <= 0 {
			return 0, false
		}
		wait := (need - b.tokens) / l.budget.Rate
		return time.Duration(math.Ceil(wait * float64(time.Second))), false
	}
	b.tokens -= need
	return 0, true
}

func (l *Limiter) refill(b *bucket, now time.Time) {
	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = math.Min(b.tokens+l.budget.Rate*elapsed, float64(l.budget.Burst))
	b.lastCheck = now
}

// prune drops buckets that have refilled completely. A full bucket behaves
// exactly like a missing one.
func (l *Limiter) prune(now time.Time) {
	for key, b := range l.buckets {
		l.refill(b, now)
		if b.tokens >= float64(l.budget.Burst) {
			delete(l.buckets, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Op names a metered operation.
type Op string

const (
	OpStrength Op = "strength"
	OpSimulate Op = "simulate"
	OpRuns     Op = "runs"
)

// Limits maps operations to their limiters. Operations without one are
// never limited.
type Limits map[Op]*Limiter

// DefaultLimits sizes each bucket for the work its operation does. A strength
// estimate steps one sample, a simulation steps every replicate, and listing
// runs costs one.
func DefaultLimits() Limits {
	return Limits{
		OpStrength: NewLimiter(Budget{Rate: 100_000.0 / 60, Burst: 100_000}),
		OpSimulate: NewLimiter(Budget{Rate: 200_000.0 / 60, Burst: 400_000}),
		OpRuns:     NewLimiter(Budget{Rate: 1, Burst: 10}),
	}
}

// Charge takes cost steps from key's bucket for op. Costs below one are
// charged as one. The error is ErrOverBudget when no wait could cover cost,
// or a *LimitError wrapping ErrRateLimited when the bucket is short.
func (ls Limits) Charge(op Op, key string, cost int) error {
	l, ok := ls[op]
	if !ok || l == nil {
		return nil
	}
	if cost < 1 {
		cost = 1
	}
	if cost > l.budget.Burst {
		return fmt.Errorf("%w: %s costs %d steps, at most %d allowed", ErrOverBudget, op, cost, l.budget.Burst)
	}
	if wait, ok := l.Take(key, cost); !ok {
		return &LimitError{Op: op, Cost: cost, RetryAfter: wait}
	}
	return nil
}
