// Package window opens the desktop window whose surface the wgpu device presents to.
package window

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window is a GLFW window. Every method must be called from the goroutine that created it.
type Window interface {
	// SurfaceDescriptor returns the platform surface descriptor for creating a wgpu surface on this window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil once the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Size returns the framebuffer size in pixels, which may differ from the requested size on high-DPI displays.
	//
	// Returns:
	//   - int: the width
	//   - int: the height
	Size() (int, int)

	// ProcessMessages polls pending events without blocking.
	//
	// Returns:
	//   - bool: true while the window is open
	ProcessMessages() bool

	// IsRunning reports whether the window is open.
	//
	// Returns:
	//   - bool: true while the window is open
	IsRunning() bool

	// Close destroys the window and terminates GLFW.
	//
	// Returns:
	//   - error: error if the window was never opened or is already closed
	Close() error
}

type engineWindow struct {
	mu       *sync.Mutex
	logger   *log.Logger
	title    string
	width    int
	height   int
	onResize func(width, height int)
	onKey    func(key glfw.Key)
	window   *glfw.Window
	running  bool
}

var _ Window = &engineWindow{}

// NewWindow initializes GLFW and opens a window without a client API, since wgpu provides its own.
// The calling goroutine is locked to its OS thread.
//
// Parameters:
//   - options: functional options for window configuration
//
// Returns:
//   - Window: the open window
//   - error: error if GLFW or the window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		mu:     &sync.Mutex{},
		logger: log.Default(),
		title:  "oxy-graph",
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}

	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	w.window = win
	w.running = true

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		if key == glfw.KeyEscape {
			w.setRunning(false)
			win.SetShouldClose(true)
			return
		}
		if w.onKey != nil {
			w.onKey(key)
		}
	})
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.mu.Lock()
		w.width, w.height = width, height
		w.mu.Unlock()
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	w.width, w.height = win.GetFramebufferSize()
	w.logger.Debug("window opened", "title", w.title, "width", w.width, "height", w.height)
	return w, nil
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if !w.IsRunning() {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.window)
}

func (w *engineWindow) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *engineWindow) ProcessMessages() bool {
	if w.window == nil {
		return false
	}
	glfw.PollEvents()
	return w.IsRunning()
}

func (w *engineWindow) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running && w.window != nil && !w.window.ShouldClose()
}

func (w *engineWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.window == nil {
		return fmt.Errorf("window is not initialized")
	}
	w.running = false
	w.window.Destroy()
	w.window = nil
	glfw.Terminate()
	return nil
}

func (w *engineWindow) setRunning(running bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = running
}
