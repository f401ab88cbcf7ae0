// Package system holds the engine's built-in ECS systems.
package system

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
)

// DrawingSystemName is the name the drawing system registers under.
const DrawingSystemName = "DrawingSystem"

// DrawingSystem renders the world every tick. It owns the device and one renderer per configured renderer type.
type DrawingSystem interface {
	ecs.System

	// Device returns the device, or nil before Initialize.
	//
	// Returns:
	//   - device.Device: the device
	Device() device.Device

	// Renderer returns the renderer of the given type, or nil if it is not configured.
	//
	// Parameters:
	//   - t: the renderer type
	//
	// Returns:
	//   - renderer.Renderer: the renderer or nil
	Renderer(t common.RendererType) renderer.Renderer

	// Frames returns the number of frames presented.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Stats returns the latest statistics of every renderer, keyed by renderer type.
	//
	// Returns:
	//   - map[common.RendererType]renderer.Stats: the statistics
	Stats() map[common.RendererType]renderer.Stats
}

type drawingSystem struct {
	mu     *sync.Mutex
	ctx    *config.Context
	logger *log.Logger

	device          device.Device
	deviceOptions   []device.DeviceBuilderOption
	rendererOptions []renderer.RendererBuilderOption

	world         ecs.World
	rendererTypes []common.RendererType
	renderers     map[common.RendererType]renderer.Renderer
	drawLists     map[common.RendererType][]ecs.Entity
	frames        uint64
}

var _ DrawingSystem = &drawingSystem{}

// NewDrawingSystem creates the drawing system. The device and renderers are created by Initialize.
//
// Parameters:
//   - ctx: the engine context
//   - options: functional options for drawing system configuration
//
// Returns:
//   - DrawingSystem: the new system
func NewDrawingSystem(ctx *config.Context, options ...DrawingSystemBuilderOption) DrawingSystem {
	if ctx == nil {
		ctx = config.NewContext(nil, nil)
	}
	s := &drawingSystem{
		mu:        &sync.Mutex{},
		ctx:       ctx,
		logger:    ctx.Logger().With("system", DrawingSystemName),
		renderers: make(map[common.RendererType]renderer.Renderer),
		drawLists: make(map[common.RendererType][]ecs.Entity),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *drawingSystem) Name() string {
	return DrawingSystemName
}

func (s *drawingSystem) Initialize(w ecs.World) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world = w

	if s.device == nil {
		d, err := device.NewDevice(s.ctx, s.deviceOptions...)
		if err != nil {
			return err
		}
		s.device = d
	} else {
		s.ctx.SetCapabilities(s.device.Capabilities())
		s.ctx.MarkGlobalState(config.StateDeviceReady, true)
	}

	for _, t := range s.ctx.Config().RendererTypes() {
		if _, exists := s.renderers[t]; exists {
			continue
		}
		r, err := renderer.NewRenderer(t, s.device, s.ctx, s.rendererOptions...)
		if err != nil {
			return err
		}
		if err := r.BuildRenderGraph(); err != nil {
			r.Close()
			return fmt.Errorf("failed to build %s renderer: %w", t, err)
		}
		s.renderers[t] = r
		s.rendererTypes = append(s.rendererTypes, t)
	}
	s.ctx.MarkGlobalState(config.StateRenderGraphBuilt, true)
	s.logger.Info("drawing system initialized", "device", s.device.Type(), "renderers", len(s.renderers))
	return nil
}

func (s *drawingSystem) FrameBegin(float32) {}

func (s *drawingSystem) Tick(float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.world == nil || s.device == nil {
		return
	}

	for _, e := range s.world.EntityList() {
		t, ok := drawTarget(e)
		if !ok {
			continue
		}
		s.drawLists[t] = append(s.drawLists[t], e)
	}

	camera := s.world.FindEntityWithTag(ecs.MainCameraTag)
	if camera == nil {
		s.logger.Debug("no main camera, skipping draw")
	}
	for _, t := range s.rendererTypes {
		list := s.drawLists[t]
		if len(list) == 0 {
			continue
		}
		if err := s.renderers[t].Draw(list, camera); err != nil {
			s.logger.Error("draw failed", "renderer", t, "err", err)
		}
	}
	s.device.Present()
	s.frames++
}

func (s *drawingSystem) FrameEnd(float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t := range s.drawLists {
		s.drawLists[t] = s.drawLists[t][:0]
	}
}

func (s *drawingSystem) ShutDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.rendererTypes {
		s.renderers[t].Close()
	}
	if s.device != nil {
		s.device.Release()
	}
	s.logger.Debug("drawing system shut down", "frames", s.frames)
}

func (s *drawingSystem) Device() device.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

func (s *drawingSystem) Renderer(t common.RendererType) renderer.Renderer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderers[t]
}

func (s *drawingSystem) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *drawingSystem) Stats() map[common.RendererType]renderer.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[common.RendererType]renderer.Stats, len(s.renderers))
	for t, r := range s.renderers {
		out[t] = r.Stats()
	}
	return out
}

// drawTarget picks the renderer an entity is drawn by. Entities with a mesh renderer use its renderer type; lights
// without one belong to the standard renderer.
func drawTarget(e ecs.Entity) (common.RendererType, bool) {
	if !e.Enabled() {
		return 0, false
	}
	if mr, ok := e.Component(ecs.ComponentTypeMeshRenderer).(*ecs.MeshRendererComponent); ok {
		return mr.Renderer, true
	}
	if e.HasComponents(ecs.ComponentTypeLight) {
		return common.RendererTypeStandard, true
	}
	return 0, false
}
