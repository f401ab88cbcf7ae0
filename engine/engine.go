// Package engine runs the main loop: it ticks the ECS world at a fixed rate, pumps the window and reports
// profiling statistics.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
	"github.com/Carmen-Shannon/oxy-graph/engine/profiler"
	"github.com/Carmen-Shannon/oxy-graph/engine/system"
	"github.com/Carmen-Shannon/oxy-graph/engine/window"
)

// SetupFunc runs once after the world's systems are initialized and before the first tick. It typically creates the
// scene's entities.
type SetupFunc func(e Engine) error

// engine implements the Engine interface.
type engine struct {
	ctx    *config.Context
	logger *log.Logger

	quitChannel chan struct{}
	quitOnce    sync.Once

	world  ecs.World
	window window.Window
	setup  SetupFunc

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickDuration time.Duration
	frameCount   uint64
	frames       atomic.Uint64
}

// Engine is the main entry point for the engine.
type Engine interface {
	// Context returns the engine context.
	//
	// Returns:
	//   - *config.Context: the context
	Context() *config.Context

	// World returns the ticked world.
	//
	// Returns:
	//   - ecs.World: the world
	World() ecs.World

	// Window returns the window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// SetTickRate sets the world tick rate.
	//
	// Parameters:
	//   - fps: ticks per second; 0 or less runs uncapped
	SetTickRate(fps float64)

	// Frames returns the number of completed world ticks.
	//
	// Returns:
	//   - uint64: the tick count
	Frames() uint64

	// Run initializes the world, runs the setup function and then ticks the world until ctx is cancelled, Quit is
	// called, the window closes or the configured frame count is reached. Systems are shut down before it returns.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: error if initialization or setup fails, or if a tick panicked
	Run(ctx context.Context) error

	// Quit stops the loop after the current tick. Safe to call multiple times and from any goroutine.
	Quit()
}

// NewEngine creates an engine from the context's configuration. Options override the configured values.
//
// Parameters:
//   - ctx: the engine context
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the new engine
func NewEngine(ctx *config.Context, options ...EngineBuilderOption) Engine {
	if ctx == nil {
		ctx = config.NewContext(nil, nil)
	}
	cfg := ctx.Config()
	e := &engine{
		ctx:              ctx,
		logger:           ctx.Logger(),
		quitChannel:      make(chan struct{}),
		profilingEnabled: cfg.App.Profiling,
		frameCount:       uint64(max(cfg.App.FrameLimit, 0)),
	}
	e.SetTickRate(cfg.App.TickRate)
	for _, opt := range options {
		opt(e)
	}
	if e.world == nil {
		e.world = ecs.NewWorld(e.logger)
	}
	return e
}

func (e *engine) Context() *config.Context {
	return e.ctx
}

func (e *engine) World() ecs.World {
	return e.world
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		e.tickDuration = 0
		return
	}
	e.tickDuration = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}

func (e *engine) Run(ctx context.Context) error {
	if err := e.world.Initialize(); err != nil {
		e.world.ShutDown()
		return fmt.Errorf("failed to initialize world: %w", err)
	}
	defer e.world.ShutDown()

	if e.setup != nil {
		if err := e.setup(e); err != nil {
			return fmt.Errorf("engine setup failed: %w", err)
		}
	}
	if e.profilingEnabled && e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger), profiler.WithRenderStats(e.renderStats))
	}

	e.logger.Info("engine running", "tick", e.tickDuration, "frames", e.frameCount)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitChannel:
			return nil
		default:
		}

		if e.window != nil && !e.window.ProcessMessages() {
			e.logger.Info("window closed")
			return nil
		}

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		if err := e.tick(dt); err != nil {
			e.signalQuit()
			return err
		}
		frames := e.frames.Add(1)

		if e.profilingEnabled && e.profiler != nil {
			e.profiler.Tick()
		}
		if e.frameCount > 0 && frames >= e.frameCount {
			e.logger.Info("frame limit reached", "frames", frames)
			return nil
		}

		if e.tickDuration > 0 {
			if remaining := e.tickDuration - time.Since(now); remaining > 0 {
				timer := time.NewTimer(remaining)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil
				case <-e.quitChannel:
					timer.Stop()
					return nil
				case <-timer.C:
				}
			}
		}
	}
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel. Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// tick runs one world tick, turning a panic into an error.
func (e *engine) tick(dt float32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("world tick recovered from panic", "panic", r)
			err = fmt.Errorf("world tick panicked: %v", r)
		}
	}()
	e.world.Tick(dt)
	return nil
}

// renderStats reads the drawing system's renderer statistics for the profiler.
func (e *engine) renderStats() map[string]profiler.RenderStats {
	ds, ok := e.world.System(system.DrawingSystemName).(system.DrawingSystem)
	if !ok {
		return nil
	}
	out := make(map[string]profiler.RenderStats)
	for t, s := range ds.Stats() {
		out[t.String()] = profiler.RenderStats{
			Nodes:        s.Nodes,
			Batches:      s.Batches,
			Parallel:     s.Parallel,
			LastDuration: s.LastDuration,
		}
	}
	return out
}
