// Package engine provides the period-based simulation loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Common period lengths.
const (
	PeriodDay     = 24 * time.Hour
	PeriodWeek    = 7 * PeriodDay
	PeriodMonth   = 30 * PeriodDay
	PeriodQuarter = 91 * PeriodDay
)

// Engine drives the simulation forward one period at a time.
type Engine struct {
	Period       int           // Periods completed (monotonic)
	Start        time.Time     // Simulated date of period 1
	PeriodLength time.Duration // Simulated time between periods
	Interval     time.Duration // Wall-clock pause between periods (0 = run flat out)
	MaxPeriods   int           // Stop after this many periods (0 = until cancelled)
	ReportEvery  int           // OnReport cadence in periods (0 = never)

	// Callbacks populated during setup.
	OnPeriod func(period int, date time.Time) // Every period
	OnReport func(period int, date time.Time) // Every ReportEvery periods

	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewEngine creates an engine whose first period falls on start.
func NewEngine(start time.Time, periodLength time.Duration) *Engine {
	return &Engine{
		Start:        start,
		PeriodLength: periodLength,
		stop:         make(chan struct{}),
	}
}

// Date returns the simulated date of the given period (1-based).
func (e *Engine) Date(period int) time.Time {
	return e.Start.Add(time.Duration(period-1) * e.PeriodLength)
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run executes periods until MaxPeriods is reached, Stop is called, or ctx is
// cancelled. Cancellation only takes effect between periods. An Engine runs once.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "period", e.Period, "start", e.Start.Format(time.DateOnly), "max_periods", e.MaxPeriods)

	for {
		if e.MaxPeriods > 0 && e.Period >= e.MaxPeriods {
			slog.Info("simulation engine finished", "period", e.Period)
			return nil
		}
		select {
		case <-ctx.Done():
			slog.Info("simulation engine cancelled", "period", e.Period)
			return ctx.Err()
		case <-e.stop:
			slog.Info("simulation engine stopped", "period", e.Period)
			return nil
		default:
		}

		e.step()

		if e.Interval > 0 {
			timer := time.NewTimer(e.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				slog.Info("simulation engine cancelled", "period", e.Period)
				return ctx.Err()
			case <-e.stop:
				timer.Stop()
				slog.Info("simulation engine stopped", "period", e.Period)
				return nil
			case <-timer.C:
			}
		}
	}
}

// Stop halts the loop after the current period.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// step advances the simulation by one period.
func (e *Engine) step() {
	e.Period++
	date := e.Date(e.Period)

	if e.OnPeriod != nil {
		e.OnPeriod(e.Period, date)
	}
	if e.ReportEvery > 0 && e.Period%e.ReportEvery == 0 && e.OnReport != nil {
		e.OnReport(e.Period, date)
	}
}

// PeriodLabel returns a human-readable label for a period.
func PeriodLabel(period int, date time.Time) string {
	return fmt.Sprintf("Period %d (%s)", period, date.Format(time.DateOnly))
}
