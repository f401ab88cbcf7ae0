// Package rendergraph schedules render passes as a dependency graph. Nodes are ordered once into integer priorities
// and then executed every frame, either sequentially on the device's implicit stream or in parallel on a pool of
// recording workers.
package rendergraph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
)

var (
	// ErrUnorderedNodes is returned by BuildRenderNodePriorities when a cycle leaves nodes without a priority.
	ErrUnorderedNodes = errors.New("render nodes could not be ordered")

	// ErrNoWorkerPool is returned by BeginRenderPassesParallel when the device records synchronously.
	ErrNoWorkerPool = errors.New("render graph has no execution worker pool")

	// ErrInvalidNode is returned by AddRenderNode for nameless, duplicate or foreign nodes.
	ErrInvalidNode = errors.New("invalid render node")
)

// CommandRecordedFunc receives each node's finished command buffer in parallel mode. It is called from worker
// goroutines.
type CommandRecordedFunc func(name string, buf *device.CommandBuffer)

// RenderGraph owns a set of render nodes and runs them once per frame in dependency order.
type RenderGraph interface {
	// AddRenderNode registers a node under a unique name.
	//
	// Parameters:
	//   - name: the node name, unique within the graph
	//   - node: a node created by NewRenderNode that is not registered with any graph
	//
	// Returns:
	//   - error: ErrInvalidNode if the name is empty or taken or the node cannot be registered
	AddRenderNode(name string, node RenderNode) error

	// GetNodeByName looks up a registered node. A miss is logged.
	//
	// Parameters:
	//   - name: the node name
	//
	// Returns:
	//   - RenderNode: the node or nil
	GetNodeByName(name string) RenderNode

	// GetRenderNodeCount returns the number of registered nodes.
	GetRenderNodeCount() int

	// Nodes returns the registered nodes in registration order.
	Nodes() []RenderNode

	// BuildRenderNodePriorities orders the nodes topologically and assigns each its position as priority. The
	// order is deterministic: ties are broken by registration order, then by connection order.
	//
	// Returns:
	//   - error: ErrUnorderedNodes naming the nodes caught in a cycle
	BuildRenderNodePriorities() error

	// NodePriority returns a registered node's priority.
	//
	// Parameters:
	//   - name: the node name
	//
	// Returns:
	//   - int: the priority
	//   - bool: false if the node is unknown or priorities have not been built
	NodePriority(name string) (int, bool)

	// NodeNameByPriority returns the name of the node at a priority, or an empty string.
	NodeNameByPriority(priority int) string

	// NodePriorityDependencies returns, for every priority, the priorities of that node's predecessors.
	//
	// Returns:
	//   - map[int][]int: a copy of the dependency map
	NodePriorityDependencies() map[int][]int

	// SetupRenderNodes runs every node's setup function concurrently, publishes each node's outputs as
	// "<node>.<key>" and resolves the input bindings against them.
	//
	// Parameters:
	//   - ctx: cancels outstanding setup work once one setup fails
	//
	// Returns:
	//   - error: the first setup error
	SetupRenderNodes(ctx context.Context) error

	// Resources returns the table of published node outputs.
	Resources() *ResourceTable

	// SupportsParallel reports whether the graph started an execution worker pool.
	SupportsParallel() bool

	// BeginRenderPasses runs every node once on the calling goroutine in priority order.
	//
	// Parameters:
	//   - ctx: the frame context passed to every callback
	BeginRenderPasses(ctx *RenderContext)

	// BeginRenderPassesParallel starts a frame on the worker pool and returns without waiting. Completion is
	// observed through the command-recorded hook, which is called once per node.
	//
	// Parameters:
	//   - ctx: the frame context passed to every callback
	//
	// Returns:
	//   - error: ErrNoWorkerPool if the graph has no workers
	BeginRenderPassesParallel(ctx *RenderContext) error

	// EnqueueRenderNode hands a node to the workers if every predecessor has executed this frame and the node has
	// not been enqueued yet.
	//
	// Parameters:
	//   - node: the node to enqueue
	//
	// Returns:
	//   - bool: true if this call enqueued the node
	EnqueueRenderNode(node RenderNode) bool

	// Close stops the worker pool, waiting for in-flight callbacks.
	Close()
}

type renderGraph struct {
	mu                *sync.RWMutex
	device            device.Device
	logger            *log.Logger
	executionThreads  int
	onCommandRecorded CommandRecordedFunc
	nodes             map[string]*renderNode
	order             []*renderNode
	priorityNames     []string
	priorityDeps      map[int][]int
	resources         *ResourceTable
	pool              *executionPool
}

var _ RenderGraph = &renderGraph{}

// NewRenderGraph creates an empty graph. If the device supports async recording, the execution worker pool is
// started immediately.
//
// Parameters:
//   - ctx: the engine context supplying the logger and the execution thread count
//   - d: the device the nodes record against
//   - options: functional options for graph configuration
//
// Returns:
//   - RenderGraph: the new graph
func NewRenderGraph(ctx *config.Context, d device.Device, options ...RenderGraphBuilderOption) RenderGraph {
	if ctx == nil {
		ctx = config.NewContext(nil, nil)
	}
	g := &renderGraph{
		mu:               &sync.RWMutex{},
		device:           d,
		logger:           ctx.Logger(),
		executionThreads: ctx.Config().Graphics.ExecutionThreads,
		nodes:            make(map[string]*renderNode),
		priorityDeps:     make(map[int][]int),
		resources:        NewResourceTable(),
	}
	for _, opt := range options {
		opt(g)
	}
	if g.executionThreads <= 0 {
		g.executionThreads = config.DefaultExecutionThreads
	}

	if d != nil && d.Capabilities().AsyncRecording {
		g.pool = newExecutionPool(g, g.executionThreads)
		g.logger.Debug("render graph execution pool started", "workers", g.executionThreads)
	}
	return g
}

func (g *renderGraph) AddRenderNode(name string, node RenderNode) error {
	n, ok := node.(*renderNode)
	if !ok || n == nil {
		return fmt.Errorf("%w: %q was not created by NewRenderNode", ErrInvalidNode, name)
	}
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidNode)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("%w: duplicate name %q", ErrInvalidNode, name)
	}
	if n.graph != nil {
		return fmt.Errorf("%w: %q is already registered as %q", ErrInvalidNode, name, n.name)
	}
	n.name = name
	n.graph = g
	g.nodes[name] = n
	g.order = append(g.order, n)
	return nil
}

func (g *renderGraph) GetNodeByName(name string) RenderNode {
	g.mu.RLock()
	n, ok := g.nodes[name]
	g.mu.RUnlock()
	if !ok {
		g.logger.Warn("couldn't find render node", "name", name)
		return nil
	}
	return n
}

func (g *renderGraph) GetRenderNodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

func (g *renderGraph) Nodes() []RenderNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return asNodes(g.order)
}

func (g *renderGraph) BuildRenderNodePriorities() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.resetFrameState(nil)

	sorted := make([]*renderNode, 0, len(g.order))
	for _, n := range g.order {
		if len(n.prev) == 0 {
			n.state.visited = true
			sorted = append(sorted, n)
		}
	}
	for i := 0; i < len(sorted); i++ {
		for _, next := range sorted[i].next {
			if next.graph != g {
				g.logger.Warn("render node connected to an unregistered node", "node", sorted[i].name)
				continue
			}
			if next.state.pending.Add(-1) == 0 && !next.state.visited {
				next.state.visited = true
				sorted = append(sorted, next)
			}
		}
	}

	var unordered []string
	for _, n := range g.order {
		n.priority = -1
		if !n.state.visited {
			unordered = append(unordered, n.name)
		}
	}

	g.priorityNames = make([]string, len(sorted))
	g.priorityDeps = make(map[int][]int, len(sorted))
	for p, n := range sorted {
		n.priority = p
		g.priorityNames[p] = n.name
	}
	for p, n := range sorted {
		deps := make([]int, 0, len(n.prev))
		for _, prev := range n.prev {
			deps = append(deps, prev.priority)
		}
		g.priorityDeps[p] = deps
	}

	g.resetFrameState(nil)

	if len(unordered) > 0 {
		return fmt.Errorf("%w: %s", ErrUnorderedNodes, strings.Join(unordered, ", "))
	}
	g.logger.Debug("render node priorities built", "order", strings.Join(g.priorityNames, " -> "))
	return nil
}

func (g *renderGraph) NodePriority(name string) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	if !ok || n.priority < 0 {
		return -1, false
	}
	return n.priority, true
}

func (g *renderGraph) NodeNameByPriority(priority int) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if priority < 0 || priority >= len(g.priorityNames) {
		return ""
	}
	return g.priorityNames[priority]
}

func (g *renderGraph) NodePriorityDependencies() map[int][]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[int][]int, len(g.priorityDeps))
	for p, deps := range g.priorityDeps {
		out[p] = slices.Clone(deps)
	}
	return out
}

func (g *renderGraph) SetupRenderNodes(ctx context.Context) error {
	g.mu.RLock()
	nodes := slices.Clone(g.order)
	g.mu.RUnlock()

	eg, egCtx := errgroup.WithContext(ctx)
	for _, n := range nodes {
		if n.setup == nil {
			continue
		}
		eg.Go(func() error {
			if err := n.setup(egCtx, g.device, n.output); err != nil {
				return fmt.Errorf("failed to set up render node %s: %w", n.name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for _, n := range nodes {
		for _, key := range n.output.Keys() {
			g.resources.Add(ResourceKey(n.name)+"."+key, n.output.Get(key))
		}
	}
	for _, n := range nodes {
		for _, b := range n.bindings {
			r := g.resources.Get(b.source)
			if r == nil {
				g.logger.Warn("unresolved render node input", "node", n.name, "input", b.input, "source", b.source)
				continue
			}
			n.input.Add(b.input, r)
		}
	}
	g.logger.Debug("render nodes set up", "nodes", len(nodes), "resources", g.resources.Len())
	return nil
}

func (g *renderGraph) Resources() *ResourceTable {
	return g.resources
}

func (g *renderGraph) SupportsParallel() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pool != nil
}

func (g *renderGraph) Close() {
	g.mu.Lock()
	pool := g.pool
	g.pool = nil
	g.mu.Unlock()
	if pool != nil {
		pool.stop()
	}
}

// resetFrameState clears every node's per-frame record and attaches the frame context.
func (g *renderGraph) resetFrameState(ctx *RenderContext) {
	for _, n := range g.order {
		n.state.reset(len(n.prev))
		n.ctx = ctx
	}
}
