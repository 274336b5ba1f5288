// Package sweeper implements the background retention job that deletes
// messages whose expiry timestamp has passed.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/taskchat/taskchat-api/internal/store"
)

// Sweeper periodically deletes expired messages. It runs until its
// context is cancelled; each pass is independent, so a failed pass only
// delays deletion until the next tick.
type Sweeper struct {
	messages store.MessageStore
	interval time.Duration
	logger   *slog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// New creates a Sweeper that runs a deletion pass every interval.
func New(messages store.MessageStore, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		messages: messages,
		interval: interval,
		logger:   logger.With(slog.String("component", "sweeper")),
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled, running one deletion pass per
// tick. An initial pass runs immediately so a restart does not wait a
// full interval before catching up.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("retention sweeper started",
		slog.Duration("interval", s.interval))

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs a single deletion pass.
func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.messages.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("retention sweep failed",
			slog.String("error", err.Error()))
		return
	}

	if deleted > 0 {
		s.logger.Info("retention sweep completed",
			slog.Int64("deleted_messages", deleted))
	} else {
		s.logger.Debug("retention sweep completed, nothing expired")
	}
}
