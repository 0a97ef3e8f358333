package usecase

import (
	"context"
	"sync"
	"time"

	xlogger "QuantPulse/pkg/logger"
)

// Scheduler drives the ingestion cycle on a fixed interval. It replaces any
// notion of UI-driven refresh: one ticking driver, one cycle per tick.
type Scheduler struct {
	cycle    *IngestionCycle
	symbols  []string
	interval time.Duration
	logger   *xlogger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewScheduler(cycle *IngestionCycle, symbols []string, interval time.Duration, logger *xlogger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scheduler{
		cycle:    cycle,
		symbols:  symbols,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the ticking loop. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("scheduler started",
			xlogger.Duration("interval", s.interval),
			xlogger.Int("symbols", len(s.symbols)),
		)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.cycle.Run(ctx, s.symbols, nil); err != nil {
					s.logger.Error("scheduled cycle failed", xlogger.Error(err))
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
	s.logger.Info("scheduler stopped")
}
