package config

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-graph/common"
)

// GlobalState names a boolean engine state that systems can query and mark during a run.
type GlobalState string

const (
	// StateDeviceReady is marked once the device has been created.
	StateDeviceReady GlobalState = "device_ready"

	// StateRenderGraphBuilt is marked once every configured renderer has built its render graph.
	StateRenderGraphBuilt GlobalState = "render_graph_built"
)

// Capabilities describes what the active device supports. It is set once the device has been created.
type Capabilities struct {
	DeviceType common.DeviceType

	// AsyncRecording is true when command buffers may be recorded on worker goroutines and returned to the
	// device for ordered submission.
	AsyncRecording bool
}

// Context carries the configuration, the logger and the device capability flags into every component that needs
// them. One Context is built at startup and passed down explicitly.
type Context struct {
	mu           *sync.RWMutex
	config       *Configuration
	logger       *log.Logger
	capabilities Capabilities
	states       map[GlobalState]bool
}

// NewContext creates a Context around a validated configuration.
//
// Parameters:
//   - cfg: the configuration; nil uses Default()
//   - logger: the logger; nil uses log.Default()
//
// Returns:
//   - *Context: the new context
func NewContext(cfg *Configuration, logger *log.Logger) *Context {
	if cfg == nil {
		cfg = Default()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Context{
		mu:     &sync.RWMutex{},
		config: cfg,
		logger: logger,
		capabilities: Capabilities{
			DeviceType: cfg.DeviceType(),
		},
		states: make(map[GlobalState]bool),
	}
}

// Config returns the configuration.
func (c *Context) Config() *Configuration {
	return c.config
}

// Logger returns the engine logger.
func (c *Context) Logger() *log.Logger {
	return c.logger
}

// Capabilities returns the capability flags of the active device.
func (c *Context) Capabilities() Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capabilities
}

// SetCapabilities records the capability flags of the active device.
//
// Parameters:
//   - caps: the device capabilities
func (c *Context) SetCapabilities(caps Capabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capabilities = caps
}

// QueryGlobalState reports whether a state has been marked.
//
// Parameters:
//   - state: the state to query
//
// Returns:
//   - bool: true if the state is marked
func (c *Context) QueryGlobalState(state GlobalState) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.states[state]
}

// MarkGlobalState sets or clears a state.
//
// Parameters:
//   - state: the state to set
//   - value: the new value
func (c *Context) MarkGlobalState(state GlobalState, value bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[state] = value
}
