// Package renderer composes render graphs for each renderer type and drives them once per frame.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
	"github.com/Carmen-Shannon/oxy-graph/engine/rendergraph"
)

var (
	// ErrUnknownRendererType is returned by NewRenderer for a renderer type it cannot build.
	ErrUnknownRendererType = errors.New("unknown renderer type")

	// ErrGraphNotBuilt is returned by Draw before BuildRenderGraph has succeeded.
	ErrGraphNotBuilt = errors.New("render graph has not been built")
)

// Stats describes the most recent frame drawn by a Renderer.
type Stats struct {
	Frames       uint64
	Nodes        int
	Parallel     bool
	Batches      int
	LastDuration time.Duration
}

// Renderer owns a render graph and draws a list of entities through it every frame.
//
// A Renderer is built once at startup: BuildRenderGraph registers the renderer's passes, orders them and creates
// their resources on the device. Each Draw then runs every pass exactly once, sequentially on devices that record
// immediately or on the graph's worker pool on devices that record asynchronously, in which case the recorded
// command buffers are handed back to the device in priority order.
type Renderer interface {
	// Type returns the renderer type.
	//
	// Returns:
	//   - common.RendererType: the renderer type
	Type() common.RendererType

	// BuildRenderGraph creates and configures the render graph. Calling it again replaces the previous graph.
	//
	// Returns:
	//   - error: error if the passes cannot be ordered or their resources cannot be created
	BuildRenderGraph() error

	// Draw renders one frame.
	// Nothing is drawn when camera is nil.
	//
	// Parameters:
	//   - drawList: the entities to draw
	//   - camera: the entity to render from
	//
	// Returns:
	//   - error: ErrGraphNotBuilt, or error if the frame could not be started
	Draw(drawList []ecs.Entity, camera ecs.Entity) error

	// WriteCommandRecordList receives a node's recorded command buffer from a graph worker.
	//
	// Parameters:
	//   - name: the node that recorded the buffer
	//   - buf: the recorded buffer
	WriteCommandRecordList(name string, buf *device.CommandBuffer)

	// RenderGraph returns the renderer's graph, or nil before BuildRenderGraph.
	//
	// Returns:
	//   - rendergraph.RenderGraph: the graph
	RenderGraph() rendergraph.RenderGraph

	// Stats returns statistics about the most recent frame.
	//
	// Returns:
	//   - Stats: the statistics
	Stats() Stats

	// Close stops the graph's workers.
	Close()
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	rendererType common.RendererType
	path         RenderPath
	ctx          *config.Context
	device       device.Device
	logger       *log.Logger

	graph       rendergraph.RenderGraph
	reassembler *commandReassembler

	executionThreads int
	submissionPolicy config.SubmissionPolicy
	width            uint32
	height           uint32

	frames atomic.Uint64
	stats  Stats
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer of the given type. The render graph is not built until BuildRenderGraph is called.
//
// Parameters:
//   - rendererType: the renderer type to create
//   - d: the device to render with
//   - ctx: the engine context
//   - options: functional options for renderer configuration
//
// Returns:
//   - Renderer: the new renderer
//   - error: ErrUnknownRendererType if the type is not supported
func NewRenderer(rendererType common.RendererType, d device.Device, ctx *config.Context, options ...RendererBuilderOption) (Renderer, error) {
	if ctx == nil {
		ctx = config.NewContext(nil, nil)
	}
	cfg := ctx.Config()
	r := &renderer{
		mu:               &sync.Mutex{},
		rendererType:     rendererType,
		ctx:              ctx,
		device:           d,
		logger:           ctx.Logger().With("renderer", rendererType),
		executionThreads: cfg.Graphics.ExecutionThreads,
		submissionPolicy: cfg.Graphics.SubmissionPolicy,
		width:            uint32(cfg.Graphics.WindowWidth),
		height:           uint32(cfg.Graphics.WindowHeight),
	}

	switch rendererType {
	case common.RendererTypeStandard:
		r.path = &standardRenderPath{}
	case common.RendererTypeForward:
		r.path = &forwardRenderPath{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownRendererType, rendererType)
	}

	for _, opt := range options {
		opt(r)
	}
	if r.submissionPolicy == "" {
		r.submissionPolicy = config.SubmissionOrdered
	}
	return r, nil
}

func (r *renderer) Type() common.RendererType {
	return r.rendererType
}

func (r *renderer) BuildRenderGraph() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.graph != nil {
		r.graph.Close()
		r.graph = nil
		r.reassembler = nil
	}

	g := rendergraph.NewRenderGraph(r.ctx, r.device,
		rendergraph.WithLogger(r.logger),
		rendergraph.WithExecutionThreads(r.executionThreads),
		rendergraph.WithCommandRecordedFunc(r.WriteCommandRecordList),
	)

	surface := surfaceSize{width: r.width, height: r.height}
	if err := r.path.Build(g, r.device, surface); err != nil {
		g.Close()
		return fmt.Errorf("failed to build %s render graph: %w", r.rendererType, err)
	}
	if err := g.BuildRenderNodePriorities(); err != nil {
		g.Close()
		return fmt.Errorf("failed to order %s render graph: %w", r.rendererType, err)
	}
	if err := g.SetupRenderNodes(context.Background()); err != nil {
		g.Close()
		return fmt.Errorf("failed to set up %s render graph: %w", r.rendererType, err)
	}

	r.graph = g
	if g.SupportsParallel() {
		r.reassembler = newCommandReassembler(r.device, g, r.submissionPolicy, r.logger)
	}
	r.stats = Stats{Nodes: g.GetRenderNodeCount(), Parallel: g.SupportsParallel()}
	r.logger.Info("render graph built", "nodes", g.GetRenderNodeCount(), "parallel", g.SupportsParallel(),
		"policy", r.submissionPolicy)
	return nil
}

func (r *renderer) Draw(drawList []ecs.Entity, camera ecs.Entity) error {
	if camera == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.graph == nil {
		return ErrGraphNotBuilt
	}

	start := time.Now()
	ctx := &rendergraph.RenderContext{
		Frame:    r.frames.Add(1),
		Camera:   camera,
		DrawList: drawList,
	}

	batches := 1
	if r.reassembler != nil {
		r.reassembler.Reset()
		if err := r.graph.BeginRenderPassesParallel(ctx); err != nil {
			return fmt.Errorf("failed to begin frame %d: %w", ctx.Frame, err)
		}
		r.reassembler.Drain()
		batches = r.reassembler.Batches()
	} else {
		r.graph.BeginRenderPasses(ctx)
		r.device.FlushCommands(false, true)
	}

	r.stats.Frames = ctx.Frame
	r.stats.Batches = batches
	r.stats.LastDuration = time.Since(start)
	return nil
}

func (r *renderer) WriteCommandRecordList(name string, buf *device.CommandBuffer) {
	if r.reassembler == nil {
		r.logger.Warn("command buffer recorded without a reassembler", "node", name)
		return
	}
	r.reassembler.Write(name, buf)
}

func (r *renderer) RenderGraph() rendergraph.RenderGraph {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graph
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.graph != nil {
		r.graph.Close()
	}
}
