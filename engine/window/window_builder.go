package window

import (
	"github.com/charmbracelet/log"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// WindowBuilderOption is a functional option for configuring an engineWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the requested window size.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 && height > 0 {
			w.width, w.height = width, height
		}
	}
}

// WithLogger sets the window's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithLogger(logger *log.Logger) WindowBuilderOption {
	return func(w *engineWindow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithResizeFunc sets the callback invoked with the new framebuffer size.
//
// Parameters:
//   - fn: the resize callback
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithResizeFunc(fn func(width, height int)) WindowBuilderOption {
	return func(w *engineWindow) {
		w.onResize = fn
	}
}

// WithKeyFunc sets the callback invoked for key presses other than Escape, which always closes the window.
//
// Parameters:
//   - fn: the key callback
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithKeyFunc(fn func(key glfw.Key)) WindowBuilderOption {
	return func(w *engineWindow) {
		w.onKey = fn
	}
}
