package device

import (
	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
)

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*deviceBuilder)

// WithSurfaceDescriptor sets the window surface the device presents to.
//
// Parameters:
//   - desc: the platform surface descriptor, usually from window.Window.SurfaceDescriptor
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithSurfaceDescriptor(desc *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(b *deviceBuilder) {
		b.surfaceDescriptor = desc
	}
}

// WithSurfaceSize overrides the surface size taken from the configuration.
//
// Parameters:
//   - width, height: the surface size in pixels
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithSurfaceSize(width, height int) DeviceBuilderOption {
	return func(b *deviceBuilder) {
		b.width = uint32(width)
		b.height = uint32(height)
	}
}

// WithLogger overrides the logger taken from the context.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithLogger(l *log.Logger) DeviceBuilderOption {
	return func(b *deviceBuilder) {
		b.logger = l
	}
}

// WithFailingResources makes the headless device fail creation of resources whose label is listed.
// It has no effect on GPU backed devices.
//
// Parameters:
//   - labels: resource labels whose creation must fail
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithFailingResources(labels ...string) DeviceBuilderOption {
	return func(b *deviceBuilder) {
		if b.failingResources == nil {
			b.failingResources = make(map[string]bool, len(labels))
		}
		for _, l := range labels {
			b.failingResources[l] = true
		}
	}
}
