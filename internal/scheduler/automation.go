package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/venuewatch/venuewatch/internal/clock"
	"github.com/venuewatch/venuewatch/internal/models"
)

// CycleRunner executes collection passes.
type CycleRunner interface {
	RunFullCycle(ctx context.Context) (models.CycleResult, error)
	RunLightweightCycle(ctx context.Context) (models.CycleResult, error)
}

// Config holds the trigger periods.
type Config struct {
	FullInterval        time.Duration
	LightweightInterval time.Duration
}

// DefaultConfig returns hourly full cycles and half-hourly lightweight cycles.
func DefaultConfig() Config {
	return Config{
		FullInterval:        time.Hour,
		LightweightInterval: 30 * time.Minute,
	}
}

// Status describes the automation state.
type Status struct {
	Running             bool       `json:"running"`
	Frequency           string     `json:"frequency"`
	FullInterval        string     `json:"full_interval"`
	LightweightInterval string     `json:"lightweight_interval"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	FullInProgress      bool       `json:"full_in_progress"`
	LightInProgress     bool       `json:"lightweight_in_progress"`
}

// AutomationContext owns the automation lifecycle: Stopped until Start, Running
// until Stop. At most one pair of triggers is armed, and each trigger has at
// most one pass in flight.
type AutomationContext struct {
	runner    CycleRunner
	scheduler TaskScheduler
	config    Config
	clock     clock.Clock
	logger    *slog.Logger

	mu          sync.Mutex
	running     bool
	startedAt   time.Time
	cancelFull  CancelFunc
	cancelLight CancelFunc

	fullBusy  atomic.Bool
	lightBusy atomic.Bool
}

// NewAutomationContext creates a stopped automation context.
func NewAutomationContext(runner CycleRunner, scheduler TaskScheduler, cfg Config, clk clock.Clock, logger *slog.Logger) *AutomationContext {
	defaults := DefaultConfig()
	if cfg.FullInterval <= 0 {
		cfg.FullInterval = defaults.FullInterval
	}
	if cfg.LightweightInterval <= 0 {
		cfg.LightweightInterval = defaults.LightweightInterval
	}
	return &AutomationContext{
		runner:    runner,
		scheduler: scheduler,
		config:    cfg,
		clock:     clk,
		logger:    logger,
	}
}

// Start runs one full cycle synchronously and then arms the full and
// lightweight triggers. Calling Start while running only logs.
func (a *AutomationContext) Start(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		a.logger.Info("automation already running, start ignored")
		return
	}
	a.running = true
	a.startedAt = a.clock.Now()
	a.mu.Unlock()

	a.logger.Info("starting automation",
		"full_interval", a.config.FullInterval,
		"lightweight_interval", a.config.LightweightInterval)

	passCtx := context.WithoutCancel(ctx)
	a.guarded(models.CycleFull, &a.fullBusy, a.runner.RunFullCycle)(passCtx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		a.logger.Info("automation stopped during initial cycle, triggers not armed")
		return
	}
	if a.cancelFull == nil {
		a.cancelFull = a.scheduler.Schedule(a.config.FullInterval, a.guarded(models.CycleFull, &a.fullBusy, a.runner.RunFullCycle))
	}
	if a.cancelLight == nil {
		a.cancelLight = a.scheduler.Schedule(a.config.LightweightInterval, a.guarded(models.CycleLightweight, &a.lightBusy, a.runner.RunLightweightCycle))
	}
}

// Stop cancels both triggers. Passes already in flight run to completion.
func (a *AutomationContext) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		a.logger.Info("automation not running, stop ignored")
		return
	}
	a.running = false
	if a.cancelFull != nil {
		a.cancelFull()
		a.cancelFull = nil
	}
	if a.cancelLight != nil {
		a.cancelLight()
		a.cancelLight = nil
	}
	a.logger.Info("automation stopped")
}

// IsRunning reports whether the triggers are armed or about to be.
func (a *AutomationContext) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// FullInterval returns the full-cycle period.
func (a *AutomationContext) FullInterval() time.Duration {
	return a.config.FullInterval
}

// Status returns the running flag and a frequency description.
func (a *AutomationContext) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Status{
		Running:             a.running,
		Frequency:           a.Frequency(),
		FullInterval:        a.config.FullInterval.String(),
		LightweightInterval: a.config.LightweightInterval.String(),
		FullInProgress:      a.fullBusy.Load(),
		LightInProgress:     a.lightBusy.Load(),
	}
	if a.running {
		started := a.startedAt
		st.StartedAt = &started
	}
	return st
}

// Frequency describes the trigger periods for operators.
func (a *AutomationContext) Frequency() string {
	return fmt.Sprintf("full cycle every %s, social monitoring every %s",
		formatInterval(a.config.FullInterval), formatInterval(a.config.LightweightInterval))
}

// ForceRunNow runs a full cycle followed by a lightweight cycle, in any state.
func (a *AutomationContext) ForceRunNow(ctx context.Context) (full, light models.CycleResult, err error) {
	a.logger.Info("forced run requested")
	passCtx := context.WithoutCancel(ctx)

	full, err = a.runner.RunFullCycle(passCtx)
	if err != nil {
		return full, light, fmt.Errorf("full cycle: %w", err)
	}
	light, err = a.runner.RunLightweightCycle(passCtx)
	if err != nil {
		return full, light, fmt.Errorf("lightweight cycle: %w", err)
	}
	return full, light, nil
}

// guarded wraps a pass so an overlapping firing of the same trigger is skipped.
func (a *AutomationContext) guarded(kind models.CycleKind, busy *atomic.Bool, run func(context.Context) (models.CycleResult, error)) Task {
	return func(ctx context.Context) {
		if !busy.CompareAndSwap(false, true) {
			a.logger.Warn("previous cycle still in progress, skipping trigger", "kind", kind)
			return
		}
		defer busy.Store(false)

		result, err := run(ctx)
		if err != nil {
			a.logger.Error("cycle failed", "kind", kind, "error", err)
			return
		}
		a.logger.Info("cycle finished",
			"kind", kind,
			"processed", result.Processed,
			"new", result.New,
			"duration_ms", result.Duration.Milliseconds())
	}
}

func formatInterval(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	}
	return d.String()
}
