package docstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweepable is a store that can drop its expired entries.
type Sweepable interface {
	Sweep(ctx context.Context) (int, error)
}

// Sweeper periodically removes expired documents.
type Sweeper struct {
	scheduler *gocron.Scheduler
	target    Sweepable
	interval  time.Duration
	logger    *slog.Logger
}

// NewSweeper builds a sweeper. A nil target makes Start a no-op.
func NewSweeper(target Sweepable, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
		logger:    logger.With("component", "docstore.sweeper"),
	}
}

// Start schedules the sweep job and starts the scheduler in the background.
func (s *Sweeper) Start() error {
	if s.target == nil {
		s.logger.Info("document store has no expiry sweep; skipping")
		return nil
	}
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}
	_, err := s.scheduler.Every(minutes).Minutes().SingletonMode().Do(s.RunOnce)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("document sweeper started", "every_minutes", minutes)
	return nil
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	removed, err := s.target.Sweep(ctx)
	if err != nil {
		s.logger.Warn("document sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("expired documents removed", "count", removed)
	}
}

// Stop halts future sweeps.
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
