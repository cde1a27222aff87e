package cache

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

var errBreakerOpen = errors.New("circuit breaker is open")

// BreakerState is the state of the circuit breaker guarding a remote
// backend.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	case BreakerOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Default breaker settings for the Redis backend.
const (
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second
)

// breaker short-circuits calls to a backend that keeps failing. After
// maxFailures consecutive failures it opens and rejects calls until cooldown
// has passed, then lets a single probe through. A successful probe closes it
// again, a failed one reopens it.
type breaker struct {
	mutex       sync.Mutex
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
	state       BreakerState
	failures    int
	openedAt    time.Time
	probing     bool
}

func newBreaker(maxFailures int, cooldown time.Duration, now func() time.Time) *breaker {
	return &breaker{maxFailures: maxFailures, cooldown: cooldown, now: now}
}

// allow reports whether a call may proceed. A nil or disabled breaker always
// allows.
func (b *breaker) allow() bool {
	if b == nil || b.maxFailures <= 0 {
		return true
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return true
	case BreakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
	}
	return true
}

// record reports the outcome of an allowed call.
func (b *breaker) record(err error) {
	if b == nil || b.maxFailures <= 0 {
		return
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.probing = false
	if err == nil {
		b.state = BreakerClosed
		b.failures = 0
		return
	}
	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

func (b *breaker) State() BreakerState {
	if b == nil {
		return BreakerClosed
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}
