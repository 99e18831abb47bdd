package reconnect

import (
	"log/slog"
	"sync"
	"time"

	"diceboard/internal/dependencies/clock"
	"diceboard/internal/model"
)

// DefaultGracePeriod is how long a disconnected identity is kept before
// permanent removal
const DefaultGracePeriod = 30 * time.Second

// Supervisor defers permanent player removal after a disconnect. At most
// one timer is pending per identity: scheduling again replaces the old
// timer, and re-registration cancels it.
type Supervisor struct {
	clock   clock.Clock
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[model.PlayerID]clock.Timer
}

// New creates a Supervisor with the given grace period
func New(clk clock.Clock, timeout time.Duration, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		clock:   clk,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "reconnect")),
		pending: make(map[model.PlayerID]clock.Timer),
	}
}

// Schedule arms the removal timer for the identity. Any previously
// pending timer for the same identity is stopped first. The expire
// callback runs on the clock's timer goroutine.
func (s *Supervisor) Schedule(id model.PlayerID, expire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.pending[id]; ok {
		t.Stop()
	}

	s.pending[id] = s.clock.AfterFunc(s.timeout, func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		s.logger.Info("grace period expired", slog.String("player_id", string(id)))
		expire()
	})
	s.logger.Info("grace period started", slog.String("player_id", string(id)))
}

// Cancel stops the pending timer for the identity, reporting whether one
// was pending. Called first on every re-registration.
func (s *Supervisor) Cancel(id model.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)
	t.Stop()
	s.logger.Info("grace period cancelled", slog.String("player_id", string(id)))
	return true
}

// PendingCount returns how many identities have a removal timer armed
func (s *Supervisor) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
