package device

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
)

// wgpuDevice implements Device on top of WebGPU.
// With async recording enabled every external command buffer owns its own command encoder, so worker goroutines
// can record in parallel; returned buffers are finished and submitted in return order by FlushCommands.
// Without it only the implicit encoder exists and the device behaves as an immediate device.
type wgpuDevice struct {
	mu         *sync.Mutex
	logger     *log.Logger
	deviceType common.DeviceType
	async      bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	presentMode   wgpu.PresentMode
	surfaceFormat wgpu.TextureFormat
	width, height uint32

	implicit *wgpuEncoderState
	pending  []*CommandBuffer

	// skippedDraws counts draws that had no pipeline to run with.
	skippedDraws int
}

// wgpuEncoderState is the native recording state behind a CommandBuffer or the implicit stream.
type wgpuEncoderState struct {
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	vertex  *VertexBuffer
}

// wgpuTexture is the native state behind a Texture2D.
type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// wgpuBuffers is the native state behind a VertexBuffer.
type wgpuBuffers struct {
	vertex *wgpu.Buffer
	index  *wgpu.Buffer
}

var _ Device = &wgpuDevice{}

func newWGPUDevice(deviceType common.DeviceType, async bool, b *deviceBuilder) (*wgpuDevice, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:          &sync.Mutex{},
		logger:      b.logger,
		deviceType:  deviceType,
		async:       async,
		instance:    wgpu.CreateInstance(nil),
		presentMode: b.presentMode,
		width:       b.width,
		height:      b.height,
	}

	if b.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(b.surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	if d.surface != nil {
		d.configureSurface()
	}
	return d, nil
}

// configureSurface configures the swapchain for the current size and present mode.
func (d *wgpuDevice) configureSurface() {
	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       d.width,
		Height:      d.height,
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (d *wgpuDevice) Type() common.DeviceType {
	return d.deviceType
}

func (d *wgpuDevice) Capabilities() config.Capabilities {
	return config.Capabilities{DeviceType: d.deviceType, AsyncRecording: d.async}
}

func (d *wgpuDevice) RequestExternalCommandPool(queueType common.QueueType, gpuType common.GPUType) *CommandPool {
	if !d.async {
		d.logger.Error("external command pools are not available on an immediate device", "type", d.deviceType)
		return nil
	}
	return &CommandPool{id: uuid.New(), queueType: queueType, gpuType: gpuType}
}

func (d *wgpuDevice) RequestCommandBuffer(pool *CommandPool) *CommandBuffer {
	if pool == nil {
		return nil
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		d.logger.Error("failed to create command encoder", "err", err)
		return nil
	}
	pool.allocated++
	return &CommandBuffer{
		id:     uuid.New(),
		pool:   pool,
		native: &wgpuEncoderState{encoder: encoder},
	}
}

func (d *wgpuDevice) EndCommandBuffer(buf *CommandBuffer) {
	if buf == nil {
		return
	}
	if state, ok := buf.native.(*wgpuEncoderState); ok && state.pass != nil {
		state.pass.End()
		state.pass = nil
	}
	buf.ended = true
}

func (d *wgpuDevice) ReturnExternalCommandBuffer(buf *CommandBuffer) {
	if buf == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, buf)
}

// FlushCommands submits in return order. wgpu queues execute submissions in order, so waiting needs no extra fence.
func (d *wgpuDevice) FlushCommands(_, flushImplicit bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, buf := range d.pending {
		if state, ok := buf.native.(*wgpuEncoderState); ok {
			d.submit(state, buf.label)
		}
		buf.native = nil
	}
	d.pending = d.pending[:0]

	if flushImplicit && d.implicit != nil {
		d.submit(d.implicit, "implicit")
		d.implicit = nil
	}
}

// submit finishes the encoder in state and submits it to the queue. Must be called with mu held.
func (d *wgpuDevice) submit(state *wgpuEncoderState, label string) {
	if state.pass != nil {
		state.pass.End()
		state.pass = nil
	}
	commandBuffer, err := state.encoder.Finish(nil)
	if err != nil {
		d.logger.Error("failed to finish command encoder", "label", label, "err", err)
		state.encoder.Release()
		return
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	state.encoder.Release()
}

func (d *wgpuDevice) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil {
		return
	}
	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		d.logger.Warn("failed to acquire surface texture", "err", err)
		return
	}
	defer surfaceTexture.Release()
	d.surface.Present()
}

func (d *wgpuDevice) CreateTexture2D(info TextureCreateInfo) (*Texture2D, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	usage := wgpu.TextureUsageRenderAttachment
	if info.Sampled {
		usage |= wgpu.TextureUsageTextureBinding
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: info.Label,
		Size: wgpu.Extent3D{
			Width:              info.Width,
			Height:             info.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpuFormat(info.Format),
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: texture %q: %w", ErrResourceCreation, info.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: texture view %q: %w", ErrResourceCreation, info.Label, err)
	}
	return &Texture2D{
		id:     uuid.New(),
		label:  info.Label,
		width:  info.Width,
		height: info.Height,
		format: info.Format,
		native: &wgpuTexture{texture: tex, view: view},
	}, nil
}

func (d *wgpuDevice) CreateFrameBuffer(info FrameBufferCreateInfo) (*FrameBuffer, error) {
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

func (d *wgpuDevice) CreateVertexBuffer(info VertexBufferCreateInfo) (*VertexBuffer, error) {
	if len(info.Positions) == 0 || len(info.Positions)%3 != 0 {
		return nil, fmt.Errorf("%w: vertex buffer %q needs xyz positions", ErrResourceCreation, info.Label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	vertexData := common.SliceToBytes(interleave(info))
	vb, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: info.Label + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: vertex buffer %q: %w", ErrResourceCreation, info.Label, err)
	}
	d.queue.WriteBuffer(vb, 0, vertexData)

	native := &wgpuBuffers{vertex: vb}
	if len(info.Indices) > 0 {
		indexData := common.SliceToBytes(info.Indices)
		ib, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: info.Label + " Index Buffer",
			Size:  uint64(len(indexData)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			vb.Release()
			return nil, fmt.Errorf("%w: index buffer %q: %w", ErrResourceCreation, info.Label, err)
		}
		d.queue.WriteBuffer(ib, 0, indexData)
		native.index = ib
	}

	return &VertexBuffer{
		id:          uuid.New(),
		label:       info.Label,
		vertexCount: uint32(len(info.Positions) / 3),
		indexCount:  uint32(len(info.Indices)),
		native:      native,
	}, nil
}

func (d *wgpuDevice) BeginRenderPass(fb *FrameBuffer, buf *CommandBuffer) {
	state := d.encoderState(buf)
	if state == nil || fb == nil {
		return
	}
	if state.pass != nil {
		state.pass.End()
	}

	desc := &wgpu.RenderPassDescriptor{}
	for _, tex := range fb.colors {
		native, ok := tex.native.(*wgpuTexture)
		if !ok {
			continue
		}
		desc.ColorAttachments = append(desc.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:       native.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		})
	}
	if fb.depth != nil {
		if native, ok := fb.depth.native.(*wgpuTexture); ok {
			desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
				View:            native.view,
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: 1.0,
			}
		}
	}
	state.pass = state.encoder.BeginRenderPass(desc)
}

func (d *wgpuDevice) EndRenderPass(buf *CommandBuffer) {
	state := d.encoderState(buf)
	if state == nil || state.pass == nil {
		return
	}
	state.pass.End()
	state.pass = nil
	state.vertex = nil
}

func (d *wgpuDevice) SetVertexBuffer(vb *VertexBuffer, buf *CommandBuffer) {
	state := d.encoderState(buf)
	if state == nil || state.pass == nil || vb == nil {
		return
	}
	native, ok := vb.native.(*wgpuBuffers)
	if !ok {
		return
	}
	state.pass.SetVertexBuffer(0, native.vertex, 0, wgpu.WholeSize)
	if native.index != nil {
		state.pass.SetIndexBuffer(native.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	}
	state.vertex = vb
}

// DrawPrimitive counts the draw as skipped. Draw calls need a render pipeline from the material layer, which this
// device does not own; the pass still clears and binds its targets.
func (d *wgpuDevice) DrawPrimitive(indexCount uint32, buf *CommandBuffer) {
	d.skipDraw()
}

func (d *wgpuDevice) DrawFullScreenQuad(buf *CommandBuffer) {
	d.skipDraw()
}

func (d *wgpuDevice) skipDraw() {
	d.mu.Lock()
	d.skippedDraws++
	d.mu.Unlock()
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.implicit != nil {
		d.implicit.encoder.Release()
		d.implicit = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
	if d.skippedDraws > 0 {
		d.logger.Debug("device released", "skipped_draws", d.skippedDraws)
	}
}

// encoderState returns the recording state for buf, creating the implicit encoder on first use when buf is nil.
func (d *wgpuDevice) encoderState(buf *CommandBuffer) *wgpuEncoderState {
	if buf != nil {
		state, _ := buf.native.(*wgpuEncoderState)
		return state
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.implicit == nil {
		encoder, err := d.device.CreateCommandEncoder(nil)
		if err != nil {
			d.logger.Error("failed to create implicit command encoder", "err", err)
			return nil
		}
		d.implicit = &wgpuEncoderState{encoder: encoder}
	}
	return d.implicit
}

// wgpuFormat maps an engine texture format onto a WebGPU texture format.
func wgpuFormat(f common.TextureFormat) wgpu.TextureFormat {
	switch f {
	case common.TextureFormatDepth:
		return wgpu.TextureFormatDepth24Plus
	case common.TextureFormatRGBA8:
		return wgpu.TextureFormatRGBA8Unorm
	default:
		return wgpu.TextureFormatRGBA32Float
	}
}
