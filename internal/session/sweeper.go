package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the manager's TTL sweep on a cron schedule.
type Sweeper struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewSweeper wires a sweep job for the manager. The schedule is a standard
// cron expression or a predefined one like @every 5m.
func NewSweeper(m *Manager, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{cron: cron.New(), logger: logger}

	_, err := s.cron.AddFunc(schedule, func() {
		if n := m.Sweep(); n > 0 {
			logger.Info("expired sessions swept", "count", n, "remaining", m.Len())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("session: invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the sweep schedule. Blocks until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("session sweeper started")

	<-ctx.Done()
	s.cron.Stop()
	s.logger.Info("session sweeper stopped")
	return ctx.Err()
}
