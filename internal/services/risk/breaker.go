package risk

import (
	"errors"
	"sync"
	"time"

	"TradeQuorum/pkg/config"
)

// ErrCircuitOpen means "cannot evaluate", never "evaluated and rejected".
// Callers must not record it as a risk violation.
var ErrCircuitOpen = errors.New("circuit open")

// BreakerState is the failure-isolation state of one monitored operation.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// TransitionHook observes breaker state changes for alerting and metrics.
type TransitionHook func(operation string, from, to BreakerState, failures int)

type breaker struct {
	state       BreakerState
	failures    int
	lastFailure time.Time
}

// BreakerInfo is a read-only view of one breaker for the ops API.
type BreakerInfo struct {
	Operation   string       `json:"operation"`
	State       BreakerState `json:"state"`
	Failures    int          `json:"failures"`
	LastFailure time.Time    `json:"last_failure,omitempty"`
}

// BreakerRegistry holds one circuit breaker per monitored operation class
// (e.g. "agent:momentum-1", "feed:BTCUSDT"). Entries are created lazily and
// live for the process lifetime. Safe for use from concurrent cycles.
type BreakerRegistry struct {
	threshold    int
	timeout      time.Duration
	now          func() time.Time
	onTransition TransitionHook

	mu       sync.Mutex
	breakers map[string]*breaker
}

func NewBreakerRegistry(cfg *config.Config, hook TransitionHook) *BreakerRegistry {
	return &BreakerRegistry{
		threshold:    cfg.Breaker.FailureThreshold,
		timeout:      cfg.Breaker.RecoveryTimeout,
		now:          time.Now,
		onTransition: hook,
		breakers:     make(map[string]*breaker),
	}
}

// Allow reports whether a call for the operation may proceed. An open breaker
// rejects everything until the recovery timeout elapses, after which exactly
// one probe call passes (half-open); further calls are rejected until the
// probe settles.
func (r *BreakerRegistry) Allow(operation string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.get(operation)
	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if r.now().Sub(b.lastFailure) >= r.timeout {
			r.transition(operation, b, BreakerHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default: // half-open, probe already in flight
		return ErrCircuitOpen
	}
}

// Success records a successful call, closing a half-open breaker and
// resetting the failure counter.
func (r *BreakerRegistry) Success(operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.get(operation)
	b.failures = 0
	if b.state != BreakerClosed {
		r.transition(operation, b, BreakerClosed)
	}
}

// Failure records a failed call. Reaching the consecutive-failure threshold,
// or failing the half-open probe, opens the breaker and restarts its timer.
func (r *BreakerRegistry) Failure(operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.get(operation)
	b.failures++
	b.lastFailure = r.now()

	switch b.state {
	case BreakerClosed:
		if b.failures >= r.threshold {
			r.transition(operation, b, BreakerOpen)
		}
	case BreakerHalfOpen:
		r.transition(operation, b, BreakerOpen)
	}
}

// State returns the current state for an operation, closed when unseen.
func (r *BreakerRegistry) State(operation string) BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[operation]; ok {
		return b.state
	}
	return BreakerClosed
}

// Snapshot lists all known breakers for the ops API.
func (r *BreakerRegistry) Snapshot() []BreakerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]BreakerInfo, 0, len(r.breakers))
	for op, b := range r.breakers {
		out = append(out, BreakerInfo{
			Operation:   op,
			State:       b.state,
			Failures:    b.failures,
			LastFailure: b.lastFailure,
		})
	}
	return out
}

func (r *BreakerRegistry) get(operation string) *breaker {
	b, ok := r.breakers[operation]
	if !ok {
		b = &breaker{state: BreakerClosed}
		r.breakers[operation] = b
	}
	return b
}

// transition is called under the registry lock; hooks must not call back
// into the registry.
func (r *BreakerRegistry) transition(operation string, b *breaker, to BreakerState) {
	from := b.state
	b.state = to
	if r.onTransition != nil {
		r.onTransition(operation, from, to, b.failures)
	}
}
