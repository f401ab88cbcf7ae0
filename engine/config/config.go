// Package config holds the engine configuration file model and the Context object that carries configuration,
// logging and device capability state down into the device, render graph and renderers.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-graph/common"
)

// SubmissionPolicy controls when the command reassembly stage releases a recorded command buffer.
type SubmissionPolicy string

const (
	// SubmissionOrdered releases a buffer once its dependencies are ready and every lower priority has been
	// submitted, so the device always receives buffers in strictly ascending priority.
	SubmissionOrdered SubmissionPolicy = "ordered"

	// SubmissionDependency releases a buffer as soon as all of its dependency priorities are ready.
	SubmissionDependency SubmissionPolicy = "dependency"
)

// DefaultExecutionThreads is the number of render graph worker goroutines when none is configured.
const DefaultExecutionThreads = 4

// ErrInvalidConfiguration is wrapped by every validation failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// AppConfiguration holds application level settings.
type AppConfiguration struct {
	Name string `toml:"name" yaml:"name"`

	// TickRate is the world tick rate in ticks per second. Zero means uncapped.
	TickRate float64 `toml:"tick_rate" yaml:"tick_rate"`

	// FrameLimit stops the engine after this many frames. Zero runs until quit.
	FrameLimit int `toml:"frame_limit" yaml:"frame_limit"`

	Profiling bool `toml:"profiling" yaml:"profiling"`
}

// GraphicsConfiguration holds device and render graph settings.
type GraphicsConfiguration struct {
	// Device is the device contract name, "opengl" or "vulkan".
	Device string `toml:"device" yaml:"device"`

	// Renderers lists the renderer compositions to build, "standard" and/or "forward".
	Renderers []string `toml:"renderers" yaml:"renderers"`

	// Headless selects the in-memory device instead of a GPU backed one.
	Headless bool `toml:"headless" yaml:"headless"`

	// ForceFallbackAdapter asks wgpu for a software adapter.
	ForceFallbackAdapter bool `toml:"force_fallback_adapter" yaml:"force_fallback_adapter"`

	WindowWidth  int  `toml:"window_width" yaml:"window_width"`
	WindowHeight int  `toml:"window_height" yaml:"window_height"`
	VSync        bool `toml:"vsync" yaml:"vsync"`

	// ExecutionThreads is the size of the render graph worker pool used by async recording devices.
	ExecutionThreads int `toml:"execution_threads" yaml:"execution_threads"`

	// SubmissionPolicy is the release policy of the command reassembly stage.
	SubmissionPolicy SubmissionPolicy `toml:"submission_policy" yaml:"submission_policy"`
}

// LogConfiguration holds logger settings.
type LogConfiguration struct {
	Level string `toml:"level" yaml:"level"`
}

// Configuration is the root of a configuration file.
type Configuration struct {
	App      AppConfiguration      `toml:"app" yaml:"app"`
	Graphics GraphicsConfiguration `toml:"graphics" yaml:"graphics"`
	Log      LogConfiguration      `toml:"log" yaml:"log"`
}

// Default returns the configuration used when no file is provided.
//
// Returns:
//   - *Configuration: a fully populated default configuration
func Default() *Configuration {
	return &Configuration{
		App: AppConfiguration{
			Name:     "oxy-graph",
			TickRate: 60,
		},
		Graphics: GraphicsConfiguration{
			Device:           common.DeviceTypeVulkan.String(),
			Renderers:        []string{common.RendererTypeStandard.String()},
			WindowWidth:      1280,
			WindowHeight:     720,
			ExecutionThreads: DefaultExecutionThreads,
			SubmissionPolicy: SubmissionOrdered,
		},
		Log: LogConfiguration{
			Level: "info",
		},
	}
}

// Load reads a configuration file and overlays it on the defaults.
// The format is chosen from the file extension: .toml, .yaml or .yml.
//
// Parameters:
//   - path: the configuration file path
//
// Returns:
//   - *Configuration: the loaded and validated configuration
//   - error: error if the file cannot be read, parsed or validated
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes configuration bytes in the given format and overlays them on the defaults.
//
// Parameters:
//   - data: the raw configuration document
//   - ext: the format extension, ".toml", ".yaml" or ".yml"
//
// Returns:
//   - *Configuration: the parsed and validated configuration
//   - error: error if decoding or validation fails
func Parse(data []byte, ext string) (*Configuration, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode toml config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode yaml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfiguration, ext)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values that a partial document may leave behind.
func (c *Configuration) applyDefaults() {
	d := Default()
	c.App.Name = common.Coalesce(c.App.Name, d.App.Name)
	c.Graphics.Device = common.Coalesce(c.Graphics.Device, d.Graphics.Device)
	c.Graphics.ExecutionThreads = common.Coalesce(c.Graphics.ExecutionThreads, d.Graphics.ExecutionThreads)
	c.Graphics.SubmissionPolicy = common.Coalesce(c.Graphics.SubmissionPolicy, d.Graphics.SubmissionPolicy)
	c.Log.Level = common.Coalesce(c.Log.Level, d.Log.Level)
	if len(c.Graphics.Renderers) == 0 {
		c.Graphics.Renderers = d.Graphics.Renderers
	}
}

// Validate checks that every setting names a supported value.
//
// Returns:
//   - error: a wrapped ErrInvalidConfiguration describing the first invalid setting
func (c *Configuration) Validate() error {
	if _, err := common.ParseDeviceType(c.Graphics.Device); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	for _, name := range c.Graphics.Renderers {
		if _, err := ParseRendererType(name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
	}
	if c.Graphics.ExecutionThreads < 1 {
		return fmt.Errorf("%w: execution_threads must be at least 1, got %d", ErrInvalidConfiguration, c.Graphics.ExecutionThreads)
	}
	switch c.Graphics.SubmissionPolicy {
	case SubmissionOrdered, SubmissionDependency:
	default:
		return fmt.Errorf("%w: unknown submission_policy %q", ErrInvalidConfiguration, c.Graphics.SubmissionPolicy)
	}
	if c.Graphics.WindowWidth < 0 || c.Graphics.WindowHeight < 0 {
		return fmt.Errorf("%w: window size must not be negative", ErrInvalidConfiguration)
	}
	return nil
}

// DeviceType returns the parsed device type. Validate must have succeeded.
func (c *Configuration) DeviceType() common.DeviceType {
	t, _ := common.ParseDeviceType(c.Graphics.Device)
	return t
}

// RendererTypes returns the parsed renderer types in configuration order. Validate must have succeeded.
func (c *Configuration) RendererTypes() []common.RendererType {
	out := make([]common.RendererType, 0, len(c.Graphics.Renderers))
	for _, name := range c.Graphics.Renderers {
		t, _ := ParseRendererType(name)
		out = append(out, t)
	}
	return out
}

// ParseRendererType converts a configuration name into a common.RendererType.
//
// Parameters:
//   - name: "standard" or "forward"
//
// Returns:
//   - common.RendererType: the parsed type
//   - error: error if the name is not a known renderer
func ParseRendererType(name string) (common.RendererType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard", "deferred":
		return common.RendererTypeStandard, nil
	case "forward":
		return common.RendererTypeForward, nil
	default:
		return 0, fmt.Errorf("unsupported renderer type %q", name)
	}
}

// EncodeTOML writes the configuration as a TOML document.
//
// Returns:
//   - []byte: the encoded document
//   - error: error if encoding fails
func (c *Configuration) EncodeTOML() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
