// Package jobs contains the portal's background loops. Each job follows the
// same shape: a Start(ctx) loop driven by a ticker, stopped by Stop() or
// context cancellation, safe to start regardless of configuration.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// SessionTable is the slice of the session store the sweeper needs.
type SessionTable interface {
	DeleteExpired(now time.Time) int
	Len() int
}

// SessionSweeper periodically removes expired sessions from the store. The
// store also drops expired records lazily on access; the sweeper exists so
// abandoned sessions do not linger until someone happens to present their
// cookie.
type SessionSweeper struct {
	table    SessionTable
	interval time.Duration
	stopChan chan struct{}
}

// NewSessionSweeper creates a sweeper. A non-positive interval defaults to
// 5 minutes.
func NewSessionSweeper(table SessionTable, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SessionSweeper{
		table:    table,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop. It sweeps once immediately, then on the
// configured interval, until ctx is cancelled or Stop is called.
func (s *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("session sweeper started", "interval", s.interval)

	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			slog.Info("session sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("session sweeper context cancelled")
			return
		}
	}
}

// Stop signals the sweep loop to exit.
func (s *SessionSweeper) Stop() {
	close(s.stopChan)
}

func (s *SessionSweeper) sweep() {
	if removed := s.table.DeleteExpired(time.Now()); removed > 0 {
		slog.Info("swept expired sessions", "removed", removed, "remaining", s.table.Len())
	}
}
