package device

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
)

// HeadlessDevice is an in-memory device that records every command and submission without touching a GPU.
// It honours the same contract as the GPU backed device of its type, which makes it the device used by tests and
// by headless runs.
type HeadlessDevice struct {
	mu         *sync.Mutex
	deviceType common.DeviceType
	logger     *log.Logger

	implicit    []Command
	pending     []*CommandBuffer
	submissions []Submission
	presents    int
	pools       int

	failing map[string]bool
}

var _ Device = &HeadlessDevice{}

// NewHeadlessDevice creates a HeadlessDevice directly, without a config.Context.
//
// Parameters:
//   - deviceType: the contract to emulate
//   - options: functional options; WithLogger and WithFailingResources apply
//
// Returns:
//   - *HeadlessDevice: the new device
func NewHeadlessDevice(deviceType common.DeviceType, options ...DeviceBuilderOption) *HeadlessDevice {
	b := &deviceBuilder{logger: log.Default()}
	for _, opt := range options {
		opt(b)
	}
	return newHeadlessDevice(deviceType, b)
}

func newHeadlessDevice(deviceType common.DeviceType, b *deviceBuilder) *HeadlessDevice {
	return &HeadlessDevice{
		mu:         &sync.Mutex{},
		deviceType: deviceType,
		logger:     b.logger,
		failing:    b.failingResources,
	}
}

func (d *HeadlessDevice) Type() common.DeviceType {
	return d.deviceType
}

func (d *HeadlessDevice) Capabilities() config.Capabilities {
	return config.Capabilities{
		DeviceType:     d.deviceType,
		AsyncRecording: d.deviceType == common.DeviceTypeVulkan,
	}
}

func (d *HeadlessDevice) RequestExternalCommandPool(queueType common.QueueType, gpuType common.GPUType) *CommandPool {
	if !d.Capabilities().AsyncRecording {
		d.logger.Error("external command pools are not available on an immediate device", "type", d.deviceType)
		return nil
	}
	d.mu.Lock()
	d.pools++
	d.mu.Unlock()
	return &CommandPool{id: uuid.New(), queueType: queueType, gpuType: gpuType}
}

func (d *HeadlessDevice) RequestCommandBuffer(pool *CommandPool) *CommandBuffer {
	if pool == nil {
		return nil
	}
	pool.allocated++
	return &CommandBuffer{id: uuid.New(), pool: pool}
}

func (d *HeadlessDevice) EndCommandBuffer(buf *CommandBuffer) {
	if buf != nil {
		buf.ended = true
	}
}

func (d *HeadlessDevice) ReturnExternalCommandBuffer(buf *CommandBuffer) {
	if buf == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, buf)
}

func (d *HeadlessDevice) FlushCommands(waitExecution, flushImplicit bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, buf := range d.pending {
		d.submissions = append(d.submissions, Submission{
			BufferID: buf.id,
			Label:    buf.label,
			Commands: buf.commands,
		})
	}
	d.pending = d.pending[:0]

	if flushImplicit && len(d.implicit) > 0 {
		d.submissions = append(d.submissions, Submission{
			Label:    "implicit",
			Commands: d.implicit,
			Implicit: true,
		})
		d.implicit = nil
	}
}

func (d *HeadlessDevice) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presents++
}

func (d *HeadlessDevice) CreateTexture2D(info TextureCreateInfo) (*Texture2D, error) {
	if err := d.checkCreate(info.Label); err != nil {
		return nil, err
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("%w: texture %q has zero size", ErrResourceCreation, info.Label)
	}
	return &Texture2D{
		id:     uuid.New(),
		label:  info.Label,
		width:  info.Width,
		height: info.Height,
		format: info.Format,
	}, nil
}

func (d *HeadlessDevice) CreateFrameBuffer(info FrameBufferCreateInfo) (*FrameBuffer, error) {
	if err := d.checkCreate(info.Label); err != nil {
		return nil, err
	}
	width, height, err := frameBufferSize(info)
	if err != nil {
		return nil, err
	}
	return &FrameBuffer{
		id:     uuid.New(),
		label:  info.Label,
		width:  width,
		height: height,
		colors: info.ColorAttachments,
		depth:  info.DepthAttachment,
	}, nil
}

func (d *HeadlessDevice) CreateVertexBuffer(info VertexBufferCreateInfo) (*VertexBuffer, error) {
	if err := d.checkCreate(info.Label); err != nil {
		return nil, err
	}
	if len(info.Positions) == 0 || len(info.Positions)%3 != 0 {
		return nil, fmt.Errorf("%w: vertex buffer %q needs xyz positions", ErrResourceCreation, info.Label)
	}
	return &VertexBuffer{
		id:          uuid.New(),
		label:       info.Label,
		vertexCount: uint32(len(info.Positions) / 3),
		indexCount:  uint32(len(info.Indices)),
		native:      interleave(info),
	}, nil
}

func (d *HeadlessDevice) BeginRenderPass(fb *FrameBuffer, buf *CommandBuffer) {
	label := ""
	if fb != nil {
		label = fb.label
	}
	d.record(buf, Command{Op: OpBeginRenderPass, Resource: label})
}

func (d *HeadlessDevice) EndRenderPass(buf *CommandBuffer) {
	d.record(buf, Command{Op: OpEndRenderPass})
}

func (d *HeadlessDevice) SetVertexBuffer(vb *VertexBuffer, buf *CommandBuffer) {
	if vb == nil {
		return
	}
	d.record(buf, Command{Op: OpSetVertexBuffer, Resource: vb.label})
}

func (d *HeadlessDevice) DrawPrimitive(indexCount uint32, buf *CommandBuffer) {
	d.record(buf, Command{Op: OpDrawPrimitive, Count: indexCount})
}

func (d *HeadlessDevice) DrawFullScreenQuad(buf *CommandBuffer) {
	d.record(buf, Command{Op: OpDrawFullScreenQuad, Count: 6})
}

func (d *HeadlessDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.implicit = nil
	d.pending = nil
}

// Submissions returns a copy of every submission made so far, in submission order.
func (d *HeadlessDevice) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Submission, len(d.submissions))
	copy(out, d.submissions)
	return out
}

// ResetSubmissions drops the submission history.
func (d *HeadlessDevice) ResetSubmissions() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submissions = nil
}

// PresentCount returns how many times Present has been called.
func (d *HeadlessDevice) PresentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

// PoolCount returns how many external command pools have been requested.
func (d *HeadlessDevice) PoolCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pools
}

// record appends a command to buf, or to the implicit stream when buf is nil.
// A buffer is only ever recorded by the goroutine that owns its pool, so it needs no lock.
func (d *HeadlessDevice) record(buf *CommandBuffer, cmd Command) {
	if buf != nil {
		buf.commands = append(buf.commands, cmd)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.implicit = append(d.implicit, cmd)
}

func (d *HeadlessDevice) checkCreate(label string) error {
	if d.failing[label] {
		return fmt.Errorf("%w: %q", ErrResourceCreation, label)
	}
	return nil
}

// frameBufferSize returns the shared size of every attachment.
func frameBufferSize(info FrameBufferCreateInfo) (uint32, uint32, error) {
	var width, height uint32
	attachments := append([]*Texture2D{}, info.ColorAttachments...)
	if info.DepthAttachment != nil {
		attachments = append(attachments, info.DepthAttachment)
	}
	if len(attachments) == 0 {
		return 0, 0, fmt.Errorf("%w: framebuffer %q has no attachments", ErrResourceCreation, info.Label)
	}
	for i, tex := range attachments {
		if tex == nil {
			return 0, 0, fmt.Errorf("%w: framebuffer %q has a nil attachment", ErrResourceCreation, info.Label)
		}
		if i == 0 {
			width, height = tex.width, tex.height
			continue
		}
		if tex.width != width || tex.height != height {
			return 0, 0, fmt.Errorf("%w: framebuffer %q attachment %q is %dx%d, want %dx%d",
				ErrResourceCreation, info.Label, tex.label, tex.width, tex.height, width, height)
		}
	}
	return width, height, nil
}
