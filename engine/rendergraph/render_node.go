package rendergraph

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
)

// RenderContext is the per-frame data handed to every node callback.
type RenderContext struct {
	Frame    uint64
	Camera   ecs.Entity
	DrawList []ecs.Entity
}

// CommandContext is the recording target for a node callback. In sequential mode both fields are nil and commands go
// to the device's implicit stream; in parallel mode Pool is the worker's pool and Buffer is the node's own buffer.
type CommandContext struct {
	Pool   *device.CommandPool
	Buffer *device.CommandBuffer
}

// RenderPassFunc records a node's work. It reads its inputs, writes to its outputs and records commands into cmd.
type RenderPassFunc func(input, output *ResourceTable, ctx *RenderContext, cmd *CommandContext)

// SetupFunc creates a node's output resources and stores them in output.
type SetupFunc func(ctx context.Context, d device.Device, output *ResourceTable) error

// RenderNode is a single pass in a RenderGraph.
type RenderNode interface {
	// Name returns the name the node was registered under, or an empty string before registration.
	Name() string

	// Priority returns the node's position in the graph's topological order, or -1 before priorities are built.
	Priority() int

	// ConnectNext adds a dependency edge from this node to next. next will not run in a frame until this node has.
	//
	// Parameters:
	//   - next: the dependent node
	ConnectNext(next RenderNode)

	// PrevNodes returns the node's predecessors in connection order.
	PrevNodes() []RenderNode

	// NextNodes returns the node's successors in connection order.
	NextNodes() []RenderNode

	// SetInputResource binds one of the node's input slots to a resource published by another node. Bindings are
	// resolved by RenderGraph.SetupRenderNodes.
	//
	// Parameters:
	//   - inputKey: the slot in this node's input table
	//   - sourceKey: the published output key, such as "GBuffer.Normal"
	SetInputResource(inputKey, sourceKey ResourceKey)

	// Input returns the node's input table.
	Input() *ResourceTable

	// Output returns the node's output table.
	Output() *ResourceTable

	// Execute runs the node's callback on the implicit command stream if every predecessor has executed this frame
	// and the node has not.
	//
	// Returns:
	//   - bool: true if the callback ran
	Execute() bool

	// ExecuteParallel runs the node's callback against a worker's command context and marks the node executed.
	// It does not check predecessors; the graph only hands ready nodes to workers.
	//
	// Parameters:
	//   - cmd: the worker's command context
	ExecuteParallel(cmd *CommandContext)

	// FinishedExecution reports whether the node has executed in the current frame.
	FinishedExecution() bool
}

type inputBinding struct {
	input  ResourceKey
	source ResourceKey
}

// frameState is reset at the start of every frame and by every priority build.
type frameState struct {
	visited  bool
	enqueued atomic.Bool
	executed atomic.Bool
	pending  atomic.Int32
}

func (s *frameState) reset(predecessors int) {
	s.visited = false
	s.enqueued.Store(false)
	s.executed.Store(false)
	s.pending.Store(int32(predecessors))
}

type renderNode struct {
	name     string
	graph    *renderGraph
	pass     RenderPassFunc
	setup    SetupFunc
	input    *ResourceTable
	output   *ResourceTable
	bindings []inputBinding
	prev     []*renderNode
	next     []*renderNode
	priority int
	state    frameState
	ctx      *RenderContext
}

var _ RenderNode = &renderNode{}

// NewRenderNode creates an unregistered node.
//
// Parameters:
//   - pass: the callback recording the node's work; nil creates a node that only orders its neighbours
//   - options: functional options for node configuration
//
// Returns:
//   - RenderNode: the new node
func NewRenderNode(pass RenderPassFunc, options ...RenderNodeBuilderOption) RenderNode {
	n := &renderNode{
		pass:     pass,
		input:    NewResourceTable(),
		output:   NewResourceTable(),
		priority: -1,
	}
	for _, opt := range options {
		opt(n)
	}
	return n
}

func (n *renderNode) Name() string {
	return n.name
}

func (n *renderNode) Priority() int {
	return n.priority
}

func (n *renderNode) ConnectNext(next RenderNode) {
	nn, ok := next.(*renderNode)
	if !ok || nn == nil {
		panic("rendergraph: ConnectNext requires a node created by NewRenderNode")
	}
	n.next = append(n.next, nn)
	nn.prev = append(nn.prev, n)
}

func (n *renderNode) PrevNodes() []RenderNode {
	return asNodes(n.prev)
}

func (n *renderNode) NextNodes() []RenderNode {
	return asNodes(n.next)
}

func (n *renderNode) SetInputResource(inputKey, sourceKey ResourceKey) {
	n.bindings = append(n.bindings, inputBinding{input: inputKey, source: sourceKey})
}

func (n *renderNode) Input() *ResourceTable {
	return n.input
}

func (n *renderNode) Output() *ResourceTable {
	return n.output
}

func (n *renderNode) Execute() bool {
	if n.state.executed.Load() || !n.predecessorsExecuted() {
		return false
	}
	n.runRecovered(&CommandContext{})
	return true
}

func (n *renderNode) ExecuteParallel(cmd *CommandContext) {
	if cmd == nil {
		cmd = &CommandContext{}
	}
	n.runRecovered(cmd)
}

func (n *renderNode) FinishedExecution() bool {
	return n.state.executed.Load()
}

// runRecovered runs the callback and marks the node executed. A panic is logged instead of propagated, and the
// node still counts as executed so its successors can run.
func (n *renderNode) runRecovered(cmd *CommandContext) {
	defer func() {
		if r := recover(); r != nil {
			n.logger().Error("render node panicked", "node", n.name, "err", fmt.Sprint(r))
		}
		n.state.executed.Store(true)
	}()
	n.run(cmd)
}

func (n *renderNode) logger() *log.Logger {
	if n.graph != nil {
		return n.graph.logger
	}
	return log.Default()
}

func (n *renderNode) run(cmd *CommandContext) {
	if n.pass == nil {
		return
	}
	ctx := n.ctx
	if ctx == nil {
		ctx = &RenderContext{}
	}
	n.pass(n.input, n.output, ctx, cmd)
}

// predecessorsExecuted reports whether every predecessor has executed this frame.
func (n *renderNode) predecessorsExecuted() bool {
	for _, p := range n.prev {
		if !p.state.executed.Load() {
			return false
		}
	}
	return true
}

func asNodes(nodes []*renderNode) []RenderNode {
	out := make([]RenderNode, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}
