package risk

import (
	"errors"
	"testing"
	"time"

	"TradeQuorum/pkg/config"
)

func breakerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Breaker.FailureThreshold = 5
	cfg.Breaker.RecoveryTimeout = 60 * time.Second
	return cfg
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	r := NewBreakerRegistry(breakerConfig(), nil)

	for i := 0; i < 4; i++ {
		r.Failure("agent:x")
		if err := r.Allow("agent:x"); err != nil {
			t.Fatalf("breaker opened early after %d failures: %v", i+1, err)
		}
	}

	r.Failure("agent:x")
	if got := r.State("agent:x"); got != BreakerOpen {
		t.Fatalf("state after threshold failures = %s, want open", got)
	}
	if err := r.Allow("agent:x"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker must short-circuit, got %v", err)
	}
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	r := NewBreakerRegistry(breakerConfig(), nil)

	for i := 0; i < 4; i++ {
		r.Failure("agent:x")
	}
	r.Success("agent:x")
	for i := 0; i < 4; i++ {
		r.Failure("agent:x")
	}

	if got := r.State("agent:x"); got != BreakerClosed {
		t.Fatalf("counter should reset on success, state = %s", got)
	}
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	r := NewBreakerRegistry(breakerConfig(), nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		r.Failure("agent:x")
	}

	// before the recovery timeout nothing passes
	now = now.Add(59 * time.Second)
	if err := r.Allow("agent:x"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("call before timeout should be rejected, got %v", err)
	}

	// after the timeout exactly one probe is allowed
	now = now.Add(2 * time.Second)
	if err := r.Allow("agent:x"); err != nil {
		t.Fatalf("probe should be allowed after timeout: %v", err)
	}
	if got := r.State("agent:x"); got != BreakerHalfOpen {
		t.Fatalf("state = %s, want half_open", got)
	}
	if err := r.Allow("agent:x"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second call during probe must be rejected, got %v", err)
	}
}

func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	r := NewBreakerRegistry(breakerConfig(), nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		r.Failure("agent:x")
	}
	now = now.Add(61 * time.Second)
	if err := r.Allow("agent:x"); err != nil {
		t.Fatalf("probe: %v", err)
	}
	r.Success("agent:x")

	if got := r.State("agent:x"); got != BreakerClosed {
		t.Fatalf("state = %s, want closed", got)
	}
	if err := r.Allow("agent:x"); err != nil {
		t.Fatalf("closed breaker must allow calls: %v", err)
	}

	// counter is reset: four fresh failures stay closed
	for i := 0; i < 4; i++ {
		r.Failure("agent:x")
	}
	if got := r.State("agent:x"); got != BreakerClosed {
		t.Fatalf("failure counter was not reset, state = %s", got)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	r := NewBreakerRegistry(breakerConfig(), nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		r.Failure("agent:x")
	}
	now = now.Add(61 * time.Second)
	if err := r.Allow("agent:x"); err != nil {
		t.Fatalf("probe: %v", err)
	}
	r.Failure("agent:x")

	if got := r.State("agent:x"); got != BreakerOpen {
		t.Fatalf("state = %s, want open", got)
	}

	// the timer restarted: still rejected before a fresh timeout
	now = now.Add(30 * time.Second)
	if err := r.Allow("agent:x"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("timer should restart on probe failure, got %v", err)
	}
	now = now.Add(31 * time.Second)
	if err := r.Allow("agent:x"); err != nil {
		t.Fatalf("probe after restarted timer: %v", err)
	}
}

func TestBreakerTransitionHook(t *testing.T) {
	type event struct {
		op       string
		from, to BreakerState
	}
	var events []event
	r := NewBreakerRegistry(breakerConfig(), func(op string, from, to BreakerState, _ int) {
		events = append(events, event{op, from, to})
	})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		r.Failure("feed:BTCUSDT")
	}
	now = now.Add(61 * time.Second)
	_ = r.Allow("feed:BTCUSDT")
	r.Success("feed:BTCUSDT")

	want := []event{
		{"feed:BTCUSDT", BreakerClosed, BreakerOpen},
		{"feed:BTCUSDT", BreakerOpen, BreakerHalfOpen},
		{"feed:BTCUSDT", BreakerHalfOpen, BreakerClosed},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d transitions, want %d: %+v", len(events), len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("transition %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestBreakersAreIndependent(t *testing.T) {
	r := NewBreakerRegistry(breakerConfig(), nil)

	for i := 0; i < 5; i++ {
		r.Failure("agent:a")
	}
	if err := r.Allow("agent:b"); err != nil {
		t.Fatalf("unrelated operation must stay closed: %v", err)
	}
	if got := len(r.Snapshot()); got != 2 {
		t.Fatalf("snapshot size %d, want 2", got)
	}
}
