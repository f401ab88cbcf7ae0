// package common contains small shared types used throughout the engine. They are plain enums and helpers rather than
// interface-wrapped structs, so every package can depend on them without pulling in a backend.
package common

import (
	"fmt"
	"strings"
)

// DeviceType identifies which graphics device contract the engine runs against.
type DeviceType int

const (
	// DeviceTypeOpenGL selects the immediate contract: commands are applied to the implicit command stream and
	// the render graph executes sequentially on the calling goroutine.
	DeviceTypeOpenGL DeviceType = iota

	// DeviceTypeVulkan selects the async recording contract: worker goroutines record into external command
	// buffers which are submitted back to the device in priority order.
	DeviceTypeVulkan
)

// String returns the configuration name of the device type.
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeOpenGL:
		return "opengl"
	case DeviceTypeVulkan:
		return "vulkan"
	default:
		return fmt.Sprintf("DeviceType(%d)", int(t))
	}
}

// ParseDeviceType converts a configuration name (case-insensitive) into a DeviceType.
//
// Parameters:
//   - name: the device name, "opengl" or "vulkan"
//
// Returns:
//   - DeviceType: the parsed device type
//   - error: error if the name does not match a known device type
func ParseDeviceType(name string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "opengl", "gl":
		return DeviceTypeOpenGL, nil
	case "vulkan", "vk":
		return DeviceTypeVulkan, nil
	default:
		return 0, fmt.Errorf("unsupported device type %q", name)
	}
}

// QueueType identifies the device queue a command pool records for.
type QueueType int

const (
	QueueTypeGraphics QueueType = iota
	QueueTypeCopy
	QueueTypeCompute
	QueueTypePresent
)

// GPUType identifies which physical GPU a command pool is requested from.
type GPUType int

const (
	GPUTypeDiscrete GPUType = iota
	GPUTypeIntegrated
)

// TextureFormat is the pixel format of a device texture.
type TextureFormat int

const (
	TextureFormatRGBA32F TextureFormat = iota
	TextureFormatRGBA8
	TextureFormatDepth
)

// String returns a readable name for the texture format.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA32F:
		return "RGBA32F"
	case TextureFormatRGBA8:
		return "RGBA8"
	case TextureFormatDepth:
		return "Depth"
	default:
		return fmt.Sprintf("TextureFormat(%d)", int(f))
	}
}

// RendererType identifies a concrete renderer composition.
type RendererType int

const (
	// RendererTypeStandard is the deferred renderer built from the nine-pass render graph.
	RendererTypeStandard RendererType = iota

	// RendererTypeForward is the single-pass forward renderer.
	RendererTypeForward
)

// String returns the configuration name of the renderer type.
func (t RendererType) String() string {
	switch t {
	case RendererTypeStandard:
		return "standard"
	case RendererTypeForward:
		return "forward"
	default:
		return fmt.Sprintf("RendererType(%d)", int(t))
	}
}
