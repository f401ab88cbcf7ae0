package system

import (
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
)

// DrawingSystemBuilderOption is a functional option for configuring a DrawingSystem.
type DrawingSystemBuilderOption func(*drawingSystem)

// WithDevice uses an existing device instead of creating one from the context.
//
// Parameters:
//   - d: the device
//
// Returns:
//   - DrawingSystemBuilderOption: option function to apply
func WithDevice(d device.Device) DrawingSystemBuilderOption {
	return func(s *drawingSystem) {
		s.device = d
	}
}

// WithDeviceOptions passes options to device.NewDevice, for example a window's surface descriptor.
//
// Parameters:
//   - options: the device options
//
// Returns:
//   - DrawingSystemBuilderOption: option function to apply
func WithDeviceOptions(options ...device.DeviceBuilderOption) DrawingSystemBuilderOption {
	return func(s *drawingSystem) {
		s.deviceOptions = append(s.deviceOptions, options...)
	}
}

// WithRendererOptions passes options to every renderer.
//
// Parameters:
//   - options: the renderer options
//
// Returns:
//   - DrawingSystemBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) DrawingSystemBuilderOption {
	return func(s *drawingSystem) {
		s.rendererOptions = append(s.rendererOptions, options...)
	}
}
