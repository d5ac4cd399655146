package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when Run is called on a running scheduler.
var ErrAlreadyRunning = errors.New("scheduler already running")

// TaskFunc is one step of a tick.
type TaskFunc func(ctx context.Context) error

type task struct {
	name     string
	critical bool
	fn       TaskFunc
}

// Scheduler runs its tasks in order on every tick. Ticks never overlap.
type Scheduler struct {
	interval time.Duration
	tasks    []task
	clock    quartz.Clock
	logger   *zap.Logger
	running  atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c quartz.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// New creates a scheduler that ticks every interval.
func New(interval time.Duration, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		clock:    quartz.NewReal(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a task. When a critical task fails the rest of the tick is skipped.
// Tasks must be added before Run.
func (s *Scheduler) Add(name string, critical bool, fn TaskFunc) {
	s.tasks = append(s.tasks, task{name: name, critical: critical, fn: fn})
}

// Run ticks immediately and then every interval until ctx is cancelled.
// A tick in progress when ctx is cancelled runs to completion; its tasks get a
// context that is not cancelled with ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	ticker := s.clock.NewTicker(s.interval, "scheduler")
	defer ticker.Stop()

	s.logger.Info("Scheduler started", zap.Duration("interval", s.interval), zap.Int("tasks", len(s.tasks)))

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			// A tick that overran leaves one pending tick; more are dropped.
			if ctx.Err() != nil {
				continue
			}
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	tickCtx := context.WithoutCancel(ctx)
	start := s.clock.Now()

	for _, t := range s.tasks {
		taskStart := s.clock.Now()
		err := t.fn(tickCtx)
		if err == nil {
			s.logger.Debug("Task finished", zap.String("task", t.name), zap.Duration("duration", s.clock.Since(taskStart)))
			continue
		}

		if t.critical {
			s.logger.Error("Critical task failed, skipping the rest of the tick", zap.String("task", t.name), zap.Error(err))
			break
		}
		s.logger.Warn("Task failed", zap.String("task", t.name), zap.Error(err))
	}

	if elapsed := s.clock.Since(start); elapsed > s.interval {
		s.logger.Warn("Tick took longer than the interval", zap.Duration("elapsed", elapsed), zap.Duration("interval", s.interval))
	}
}
