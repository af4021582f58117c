// Package scheduler arms periodic collection passes.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of periodic work.
type Task func(ctx context.Context)

// CancelFunc stops future firings of a scheduled task. It is safe to call more than once.
type CancelFunc func()

// TaskScheduler runs a task every period until cancelled.
type TaskScheduler interface {
	Schedule(period time.Duration, task Task) CancelFunc
}

// TickerScheduler is a TaskScheduler backed by time.Ticker. Each scheduled task
// runs on its own goroutine; a slow run delays, never overlaps, the next one.
type TickerScheduler struct {
	logger *slog.Logger
}

// NewTickerScheduler creates a ticker-based scheduler.
func NewTickerScheduler(logger *slog.Logger) *TickerScheduler {
	return &TickerScheduler{logger: logger}
}

// Schedule starts firing task every period. The first firing happens one period from now.
func (s *TickerScheduler) Schedule(period time.Duration, task Task) CancelFunc {
	stopChan := make(chan struct{})
	ticker := time.NewTicker(period)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(task)
			case <-stopChan:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopChan) })
	}
}

func (s *TickerScheduler) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "panic", r)
		}
	}()
	task(context.Background())
}
