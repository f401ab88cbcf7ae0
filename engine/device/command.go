package device

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-graph/common"
)

// CommandPool is a per-thread allocator of command buffers for one queue.
// A pool must only be used by the goroutine that requested it.
type CommandPool struct {
	id        uuid.UUID
	queueType common.QueueType
	gpuType   common.GPUType
	allocated int
}

func (p *CommandPool) ID() uuid.UUID               { return p.id }
func (p *CommandPool) QueueType() common.QueueType { return p.queueType }
func (p *CommandPool) GPUType() common.GPUType     { return p.gpuType }

// Allocated returns how many command buffers this pool has handed out.
func (p *CommandPool) Allocated() int { return p.allocated }

// CommandOp identifies a recorded command.
type CommandOp int

const (
	OpBeginRenderPass CommandOp = iota
	OpEndRenderPass
	OpSetVertexBuffer
	OpDrawPrimitive
	OpDrawFullScreenQuad
)

// String returns the command name.
func (o CommandOp) String() string {
	switch o {
	case OpBeginRenderPass:
		return "BeginRenderPass"
	case OpEndRenderPass:
		return "EndRenderPass"
	case OpSetVertexBuffer:
		return "SetVertexBuffer"
	case OpDrawPrimitive:
		return "DrawPrimitive"
	case OpDrawFullScreenQuad:
		return "DrawFullScreenQuad"
	default:
		return fmt.Sprintf("CommandOp(%d)", int(o))
	}
}

// Command is one recorded command. Resource holds the label of the resource it references, if any.
type Command struct {
	Op       CommandOp
	Resource string
	Count    uint32
}

// CommandBuffer is a recorded list of commands that is returned to the device for submission.
// A nil *CommandBuffer passed to a recording call selects the device's implicit command stream.
type CommandBuffer struct {
	id       uuid.UUID
	label    string
	pool     *CommandPool
	commands []Command
	ended    bool
	native   any
}

func (b *CommandBuffer) ID() uuid.UUID       { return b.id }
func (b *CommandBuffer) Label() string       { return b.label }
func (b *CommandBuffer) Pool() *CommandPool  { return b.pool }
func (b *CommandBuffer) Ended() bool         { return b.ended }
func (b *CommandBuffer) Commands() []Command { return b.commands }

// SetLabel names the buffer, typically after the render node that records into it.
//
// Parameters:
//   - label: the debug label
func (b *CommandBuffer) SetLabel(label string) {
	b.label = label
}

// Submission is one command stream the device has submitted to its queue.
type Submission struct {
	BufferID uuid.UUID
	Label    string
	Commands []Command

	// Implicit is true when the submission came from the implicit command stream.
	Implicit bool
}
