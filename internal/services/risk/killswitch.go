package risk

import (
	"sync"
	"sync/atomic"

	"TradeQuorum/internal/domain/service"
)

// Switch is the shared kill-switch flag. Active is a lock-free read so every
// in-flight cycle can poll it cheaply at its check points.
type Switch struct {
	active atomic.Bool

	mu     sync.Mutex
	reason string
}

func NewSwitch() *Switch { return &Switch{} }

func (s *Switch) Active() bool { return s.active.Load() }

func (s *Switch) Set(active bool, reason string) {
	s.mu.Lock()
	s.reason = reason
	s.mu.Unlock()
	s.active.Store(active)
}

func (s *Switch) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

var _ service.KillSwitch = (*Switch)(nil)
