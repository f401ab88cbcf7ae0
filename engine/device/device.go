// Package device defines the graphics device contract the render graph records against, together with the
// OpenGL-style immediate and Vulkan-style async recording variants.
package device

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
)

var (
	// ErrUnknownDeviceType is returned when the configured device type has no implementation.
	ErrUnknownDeviceType = errors.New("unknown device type")

	// ErrResourceCreation is wrapped by every failed Create* call.
	ErrResourceCreation = errors.New("resource creation failed")
)

// Device is the graphics device contract. Command recording calls take the command buffer to record into; a nil
// buffer records into the device's implicit command stream, which is the only stream an immediate device offers.
type Device interface {
	// Type returns the device contract this device implements.
	//
	// Returns:
	//   - common.DeviceType: the device type
	Type() common.DeviceType

	// Capabilities returns the capability flags of the device.
	//
	// Returns:
	//   - config.Capabilities: the device capabilities
	Capabilities() config.Capabilities

	// RequestExternalCommandPool creates a command pool for use by one recording goroutine.
	// Immediate devices have no external pools and return nil.
	//
	// Parameters:
	//   - queueType: the queue the pool records for
	//   - gpuType: the GPU the pool is allocated on
	//
	// Returns:
	//   - *CommandPool: the new pool, or nil if the device does not support async recording
	RequestExternalCommandPool(queueType common.QueueType, gpuType common.GPUType) *CommandPool

	// RequestCommandBuffer allocates a command buffer from a pool, ready for recording.
	//
	// Parameters:
	//   - pool: a pool previously returned by RequestExternalCommandPool
	//
	// Returns:
	//   - *CommandBuffer: the new buffer, or nil if the pool is nil
	RequestCommandBuffer(pool *CommandPool) *CommandBuffer

	// EndCommandBuffer closes a buffer for recording.
	//
	// Parameters:
	//   - buf: the buffer to end
	EndCommandBuffer(buf *CommandBuffer)

	// ReturnExternalCommandBuffer hands a recorded buffer back to the device. Returned buffers are submitted by
	// the next FlushCommands call in the order they were returned.
	//
	// Parameters:
	//   - buf: the recorded buffer
	ReturnExternalCommandBuffer(buf *CommandBuffer)

	// FlushCommands submits every returned buffer in return order.
	//
	// Parameters:
	//   - waitExecution: block until the queue has finished executing the submission
	//   - flushImplicit: also submit the implicit command stream
	FlushCommands(waitExecution, flushImplicit bool)

	// Present presents the current frame.
	Present()

	// CreateTexture2D creates a 2D texture.
	//
	// Parameters:
	//   - info: the texture description
	//
	// Returns:
	//   - *Texture2D: the created texture
	//   - error: a wrapped ErrResourceCreation if creation fails
	CreateTexture2D(info TextureCreateInfo) (*Texture2D, error)

	// CreateFrameBuffer creates a render target from existing textures.
	//
	// Parameters:
	//   - info: the framebuffer description
	//
	// Returns:
	//   - *FrameBuffer: the created framebuffer
	//   - error: a wrapped ErrResourceCreation if creation fails
	CreateFrameBuffer(info FrameBufferCreateInfo) (*FrameBuffer, error)

	// CreateVertexBuffer uploads vertex and index data.
	//
	// Parameters:
	//   - info: the vertex data
	//
	// Returns:
	//   - *VertexBuffer: the created buffer
	//   - error: a wrapped ErrResourceCreation if creation fails
	CreateVertexBuffer(info VertexBufferCreateInfo) (*VertexBuffer, error)

	// BeginRenderPass starts a render pass targeting fb, clearing its attachments.
	BeginRenderPass(fb *FrameBuffer, buf *CommandBuffer)

	// EndRenderPass ends the current render pass.
	EndRenderPass(buf *CommandBuffer)

	// SetVertexBuffer binds a vertex buffer for subsequent draws.
	SetVertexBuffer(vb *VertexBuffer, buf *CommandBuffer)

	// DrawPrimitive draws indexCount indices from the bound vertex buffer.
	DrawPrimitive(indexCount uint32, buf *CommandBuffer)

	// DrawFullScreenQuad draws a screen covering quad, used by post-processing passes.
	DrawFullScreenQuad(buf *CommandBuffer)

	// Release frees every device object. The device must not be used afterwards.
	Release()
}

// NewDevice creates the device selected by the context configuration.
// The headless flag selects the in-memory device; otherwise a wgpu device is created, presenting to the surface
// descriptor passed with WithSurfaceDescriptor or rendering offscreen when none is given.
// The resulting capabilities are recorded on the context.
//
// Parameters:
//   - ctx: the engine context
//   - options: functional options for device configuration
//
// Returns:
//   - Device: the created device
//   - error: ErrUnknownDeviceType for unsupported types, or the backend initialization error
func NewDevice(ctx *config.Context, options ...DeviceBuilderOption) (Device, error) {
	b := &deviceBuilder{
		logger: ctx.Logger(),
		width:  uint32(ctx.Config().Graphics.WindowWidth),
		height: uint32(ctx.Config().Graphics.WindowHeight),
	}
	if ctx.Config().Graphics.VSync {
		b.presentMode = wgpu.PresentModeFifo
	} else {
		b.presentMode = wgpu.PresentModeImmediate
	}
	b.forceFallbackAdapter = ctx.Config().Graphics.ForceFallbackAdapter
	for _, opt := range options {
		opt(b)
	}

	deviceType, err := common.ParseDeviceType(ctx.Config().Graphics.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownDeviceType, err)
	}

	var d Device
	switch {
	case ctx.Config().Graphics.Headless:
		d = newHeadlessDevice(deviceType, b)
	case deviceType == common.DeviceTypeOpenGL:
		d, err = newWGPUDevice(deviceType, false, b)
	case deviceType == common.DeviceTypeVulkan:
		d, err = newWGPUDevice(deviceType, true, b)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownDeviceType, deviceType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %v device: %w", deviceType, err)
	}

	ctx.SetCapabilities(d.Capabilities())
	ctx.MarkGlobalState(config.StateDeviceReady, true)
	ctx.Logger().Info("device created", "type", deviceType, "headless", ctx.Config().Graphics.Headless, "async", d.Capabilities().AsyncRecording)
	return d, nil
}

// deviceBuilder collects construction options shared by every device implementation.
type deviceBuilder struct {
	logger               *log.Logger
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	presentMode          wgpu.PresentMode
	width, height        uint32
	failingResources     map[string]bool
}
