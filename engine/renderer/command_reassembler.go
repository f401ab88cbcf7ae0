package renderer

import (
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/rendergraph"
)

// commandReassembler collects the command buffers recorded by the graph's workers and hands them back to the device
// in priority order. Workers write through Write; the renderer's goroutine blocks in Drain until every node of the
// frame has been submitted.
type commandReassembler struct {
	mu     *sync.Mutex
	cond   *sync.Cond
	device device.Device
	logger *log.Logger
	policy config.SubmissionPolicy

	priorities map[string]int
	deps       map[int][]int

	slots              []*device.CommandBuffer
	written            []int
	newCommandRecorded bool

	// only touched by the draining goroutine
	ready      []bool
	submitted  []bool
	pending    []int
	nextSubmit int
	submits    int
	batches    int
}

// newCommandReassembler snapshots the graph's priorities. It must be created after the priorities are built.
func newCommandReassembler(d device.Device, g rendergraph.RenderGraph, policy config.SubmissionPolicy, logger *log.Logger) *commandReassembler {
	mu := &sync.Mutex{}
	c := &commandReassembler{
		mu:         mu,
		cond:       sync.NewCond(mu),
		device:     d,
		logger:     logger,
		policy:     policy,
		priorities: make(map[string]int),
		deps:       g.NodePriorityDependencies(),
	}
	for _, n := range g.Nodes() {
		if p := n.Priority(); p >= 0 {
			c.priorities[n.Name()] = p
		}
	}
	count := len(c.priorities)
	c.slots = make([]*device.CommandBuffer, count)
	c.ready = make([]bool, count)
	c.submitted = make([]bool, count)
	return c
}

// Reset prepares for a new frame.
func (c *commandReassembler) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.slots)
	clear(c.ready)
	clear(c.submitted)
	c.written = c.written[:0]
	c.pending = c.pending[:0]
	c.newCommandRecorded = false
	c.nextSubmit = 0
	c.submits = 0
	c.batches = 0
}

// Write stores a node's finished buffer and wakes the draining goroutine.
//
// Parameters:
//   - name: the node that recorded the buffer
//   - buf: the recorded buffer
func (c *commandReassembler) Write(name string, buf *device.CommandBuffer) {
	p, ok := c.priorities[name]
	if !ok {
		c.logger.Warn("command buffer recorded by an unknown render node", "node", name)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[p] = buf
	c.written = append(c.written, p)
	c.newCommandRecorded = true
	c.cond.Broadcast()
}

// Drain submits the frame's buffers in batches until every node's buffer has been handed to the device.
//
// Returns:
//   - []int: the priorities in the order they were submitted
func (c *commandReassembler) Drain() []int {
	order := make([]int, 0, len(c.slots))
	for c.submits < len(c.slots) {
		bufs, released := c.release(c.waitWritten())
		if len(released) == 0 {
			continue
		}
		for _, buf := range bufs {
			c.device.ReturnExternalCommandBuffer(buf)
		}
		c.device.FlushCommands(false, false)
		c.batches++
		order = append(order, released...)
	}
	return order
}

// Batches returns how many flushes the last drained frame took.
func (c *commandReassembler) Batches() int {
	return c.batches
}

// waitWritten blocks until at least one buffer has been written and takes the written queue.
func (c *commandReassembler) waitWritten() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.newCommandRecorded {
		c.cond.Wait()
	}
	c.newCommandRecorded = false
	batch := slices.Clone(c.written)
	c.written = c.written[:0]
	return batch
}

// release marks a batch of written priorities ready and returns the buffers that may be submitted now, in
// ascending priority order. Priorities that are not yet releasable are kept for the next batch.
func (c *commandReassembler) release(batch []int) ([]*device.CommandBuffer, []int) {
	for _, p := range batch {
		c.ready[p] = true
	}
	c.pending = append(c.pending, batch...)
	slices.Sort(c.pending)

	var (
		keep     []int
		released []int
	)
	for _, p := range c.pending {
		if c.releasable(p) {
			c.submitted[p] = true
			if p == c.nextSubmit {
				c.advance()
			}
			released = append(released, p)
			continue
		}
		keep = append(keep, p)
	}
	c.pending = keep

	c.mu.Lock()
	bufs := make([]*device.CommandBuffer, len(released))
	for i, p := range released {
		bufs[i] = c.slots[p]
	}
	c.mu.Unlock()

	c.submits += len(released)
	return bufs, released
}

func (c *commandReassembler) releasable(p int) bool {
	for _, dep := range c.deps[p] {
		if !c.ready[dep] {
			return false
		}
	}
	if c.policy == config.SubmissionDependency {
		return true
	}
	return p == c.nextSubmit
}

// advance moves nextSubmit past every submitted priority.
func (c *commandReassembler) advance() {
	for c.nextSubmit < len(c.submitted) && c.submitted[c.nextSubmit] {
		c.nextSubmit++
	}
}
