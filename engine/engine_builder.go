package engine

import (
	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
	"github.com/Carmen-Shannon/oxy-graph/engine/profiler"
	"github.com/Carmen-Shannon/oxy-graph/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithWorld sets the world to tick. A new empty world is created when none is given.
//
// Parameters:
//   - w: the world
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWorld(w ecs.World) EngineBuilderOption {
	return func(e *engine) {
		e.world = w
	}
}

// WithWindow sets the window to pump each tick. The loop stops when the window closes.
//
// Parameters:
//   - w: the window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler enables profiling with a preconfigured profiler.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
		e.profilingEnabled = p != nil
	}
}

// WithTickRate sets the world tick rate in ticks per second.
//
// Parameters:
//   - fps: target ticks per second; 0 or less runs uncapped
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetTickRate(fps)
	}
}

// WithFrameCount stops the loop after n ticks.
//
// Parameters:
//   - n: the number of ticks to run; 0 runs until quit
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameCount(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.frameCount = n
	}
}

// WithSetupFunc sets the function run after the world is initialized and before the first tick.
//
// Parameters:
//   - fn: the setup function
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSetupFunc(fn SetupFunc) EngineBuilderOption {
	return func(e *engine) {
		e.setup = fn
	}
}
