// Package scheduler periodically purges notifications that were read long ago.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ReadNotificationPurger deletes notifications read more than maxAge ago
type ReadNotificationPurger interface {
	PurgeReadNotifications(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Config holds configuration for the retention scheduler
type Config struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// Scheduler handles periodic retention of read notifications
type Scheduler struct {
	purger   ReadNotificationPurger
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	cancel   context.CancelFunc // stops an in-flight purge
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// New creates a new retention scheduler
func New(purger ReadNotificationPurger, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		purger:   purger,
		interval: cfg.Interval,
		maxAge:   cfg.MaxAge,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("notification retention started", "interval", s.interval, "max_age", s.maxAge)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the scheduler and waits for the current purge to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("notification retention stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.process(ctx)

	for {
		select {
		case <-ticker.C:
			s.process(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) process(ctx context.Context) {
	removed, err := s.purger.PurgeReadNotifications(ctx, s.maxAge)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("failed to purge read notifications", "error", err)
		}
		return
	}
	if removed > 0 {
		s.logger.Info("purged read notifications", "removed", removed)
	}
}
