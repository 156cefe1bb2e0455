package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/northfield/repricer/internal/clock"
	"github.com/northfield/repricer/internal/errs"
)

// breakerState is the circuit breaker's lifecycle: store calls trip a
// breaker at >=50% transient failures within a fixed window, cool down,
// then probe.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// circuitBreaker gates calls into the store gateway (C6). It is windowed
// rather than continuously decaying: every window the failure/total
// counts reset, matching the "over a 30s window" phrasing literally instead
// of approximating it with an exponential decay.
type circuitBreaker struct {
	mu            sync.Mutex
	state         breakerState
	threshold     float64
	window        time.Duration
	cooldown      time.Duration
	clock         clock.Clock
	windowStart   time.Time
	total         int
	failures      int
	openedAt      time.Time
	halfOpenInUse bool
}

func newCircuitBreaker(threshold float64, window, cooldown time.Duration, c clock.Clock) *circuitBreaker {
	return &circuitBreaker{
		threshold:   threshold,
		window:      window,
		cooldown:    cooldown,
		clock:       c,
		windowStart: c.Now(),
	}
}

// ErrBreakerOpen is returned by guard when allow refuses the call: the
// breaker is tripped and no probe slot is available.
var ErrBreakerOpen = errs.New("breaker", errs.CodeUnavailable, errs.WithMessage("circuit breaker open"))

// allow reports whether a store call may proceed, granting at most one
// concurrent half-open probe once the cooldown has elapsed.
func (b *circuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	if now.Sub(b.windowStart) >= b.window && b.state != breakerOpen {
		b.total, b.failures = 0, 0
		b.windowStart = now
	}

	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if now.Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = breakerHalfOpen
		b.halfOpenInUse = true
		return true
	case breakerHalfOpen:
		if b.halfOpenInUse {
			return false
		}
		b.halfOpenInUse = true
		return true
	default:
		return true
	}
}

// record reports the outcome of a store call gated by allow.
func (b *circuitBreaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.halfOpenInUse = false
		if err != nil {
			b.trip()
			return
		}
		b.state = breakerClosed
		b.total, b.failures = 0, 0
		b.windowStart = b.clock.Now()
		return
	}

	b.total++
	if err != nil {
		b.failures++
	}
	if b.total >= minSampleSize && float64(b.failures)/float64(b.total) >= b.threshold {
		b.trip()
	}
}

const minSampleSize = 5

func (b *circuitBreaker) trip() {
	b.state = breakerOpen
	b.openedAt = b.clock.Now()
}

// snapshot reports the current state for GET /health.
func (b *circuitBreaker) snapshot() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// guard runs fn if the breaker allows it. Transient store errors (timeouts,
// connection failures) get up to 3 attempts with an exponential backoff
// before the breaker records a failure; structural errors (not-found,
// invalid) are never retried and count as successful calls for the breaker.
func guard[T any](ctx context.Context, b *circuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	if !b.allow() {
		var zero T
		return zero, ErrBreakerOpen
	}

	result, err := backoff.Retry(ctx, func() (T, error) {
		v, callErr := fn(ctx)
		if callErr != nil && !errs.IsRetryable(callErr) {
			return v, backoff.Permanent(callErr)
		}
		return v, callErr
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))

	if errs.IsRetryable(err) {
		b.record(err)
	} else {
		b.record(nil)
	}
	return result, err
}
