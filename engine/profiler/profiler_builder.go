package profiler

import (
	"time"

	"github.com/charmbracelet/log"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithLogger sets the logger reports are written to.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(logger *log.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithUpdateInterval sets how often reports are logged.
//
// Parameters:
//   - interval: the report interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithUpdateInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithRenderStats sets the function polled for render graph statistics on every report.
//
// Parameters:
//   - fn: returns statistics keyed by renderer name
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithRenderStats(fn func() map[string]RenderStats) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.renderStats = fn
	}
}

// WithClock replaces time.Now.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}
