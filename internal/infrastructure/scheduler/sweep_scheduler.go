package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/salonsuite/backend/internal/infrastructure/config"
)

// OverdueSweeper marks invoices past their due date as overdue.
// Implemented by the billing application service.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// SweepScheduler periodically runs the overdue invoice sweep.
type SweepScheduler struct {
	sweeper OverdueSweeper
	cfg     config.SchedulerConfig
	logger  *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewSweepScheduler creates a new overdue sweep scheduler.
func NewSweepScheduler(sweeper OverdueSweeper, cfg config.SchedulerConfig, logger *zap.Logger) *SweepScheduler {
	return &SweepScheduler{
		sweeper: sweeper,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start begins the periodic sweep loop. It is a no-op when the scheduler
// is disabled in configuration or already running.
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.logger.Warn("sweep scheduler already running")
		return nil
	}

	if !s.cfg.Enabled {
		s.logger.Info("sweep scheduler disabled by configuration")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.isRunning = true

	s.wg.Add(1)
	go s.run(runCtx)

	s.logger.Info("sweep scheduler started",
		zap.Duration("interval", s.cfg.SweepInterval),
		zap.Duration("timeout", s.cfg.SweepTimeout))

	return nil
}

// Stop halts the sweep loop and waits for any in-flight sweep to finish.
func (s *SweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()
	s.isRunning = false

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduler loop is active.
func (s *SweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// TriggerImmediateSweep runs a sweep right away, outside the schedule.
func (s *SweepScheduler) TriggerImmediateSweep(ctx context.Context) error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()

	if !running {
		return ErrSchedulerNotRunning
	}

	s.logger.Info("triggering immediate overdue sweep")
	return s.executeSweep(ctx)
}

func (s *SweepScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	// Run once at startup so a restart never leaves invoices stale for
	// a full interval.
	if err := s.executeSweep(ctx); err != nil {
		s.logger.Error("initial overdue sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep scheduler loop exiting")
			return
		case <-ticker.C:
			if err := s.executeSweep(ctx); err != nil {
				s.logger.Error("scheduled overdue sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *SweepScheduler) executeSweep(ctx context.Context) error {
	sweepCtx, cancel := context.WithTimeout(ctx, s.cfg.SweepTimeout)
	defer cancel()

	start := time.Now()
	count, err := s.sweeper.SweepOverdue(sweepCtx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("overdue sweep failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	s.logger.Info("overdue sweep completed",
		zap.Int("marked_overdue", count),
		zap.Duration("duration", duration))

	return nil
}
