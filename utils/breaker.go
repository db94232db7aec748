package utils

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned without touching the backend while the
// breaker is open.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker guards calls to the hosted backend. A burst of failures trips it
// open so every surface fails fast instead of piling requests onto a
// struggling backend.
type Breaker struct {
	name         string
	maxRequests  uint32
	interval     time.Duration
	timeout      time.Duration
	failureRatio float64
	minRequests  uint32

	mutex  sync.Mutex
	state  BreakerState
	counts breakerCounts
	expiry time.Time
}

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

type breakerCounts struct {
	requests             uint32
	totalSuccesses       uint32
	totalFailures        uint32
	consecutiveFailures  uint32
	consecutiveSuccesses uint32
}

func NewBreaker(name string) *Breaker {
	return &Breaker{
		name:         name,
		maxRequests:  5,
		interval:     60 * time.Second,
		timeout:      30 * time.Second,
		failureRatio: 0.6,
		minRequests:  10,
		state:        BreakerClosed,
	}
}

// Run executes fn under the breaker. The backend call's own error is
// returned untouched; ErrBreakerOpen is returned when the call was never
// attempted.
func (b *Breaker) Run(fn func() error) error {
	if err := b.beforeRequest(); err != nil {
		return err
	}

	err := fn()
	b.afterRequest(err == nil)
	return err
}

func (b *Breaker) State() BreakerState {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.currentState(time.Now())
}

func (b *Breaker) beforeRequest() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	state := b.currentState(time.Now())

	if state == BreakerOpen {
		return ErrBreakerOpen
	}
	if state == BreakerHalfOpen && b.counts.requests >= b.maxRequests {
		return ErrBreakerOpen
	}

	b.counts.requests++
	return nil
}

func (b *Breaker) afterRequest(success bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	state := b.currentState(time.Now())
	if success {
		b.onSuccess(state)
	} else {
		b.onFailure(state)
	}
}

func (b *Breaker) onSuccess(state BreakerState) {
	b.counts.totalSuccesses++
	b.counts.consecutiveSuccesses++
	b.counts.consecutiveFailures = 0

	if state == BreakerHalfOpen && b.counts.consecutiveSuccesses >= b.maxRequests {
		b.state = BreakerClosed
		b.resetCounts(time.Now())
	}
}

func (b *Breaker) onFailure(state BreakerState) {
	b.counts.totalFailures++
	b.counts.consecutiveFailures++
	b.counts.consecutiveSuccesses = 0

	if state == BreakerHalfOpen || b.readyToTrip() {
		b.state = BreakerOpen
		b.expiry = time.Now().Add(b.timeout)
		b.counts = breakerCounts{}
	}
}

func (b *Breaker) readyToTrip() bool {
	return b.counts.requests >= b.minRequests &&
		float64(b.counts.totalFailures)/float64(b.counts.requests) >= b.failureRatio
}

func (b *Breaker) currentState(now time.Time) BreakerState {
	switch b.state {
	case BreakerClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.resetCounts(now)
		}
	case BreakerOpen:
		if b.expiry.Before(now) {
			b.state = BreakerHalfOpen
			b.counts = breakerCounts{}
		}
	}
	return b.state
}

func (b *Breaker) resetCounts(now time.Time) {
	b.counts = breakerCounts{}
	b.expiry = now.Add(b.interval)
}
