package renderer

import (
	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-graph/engine/config"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLogger overrides the context logger.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger *log.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithExecutionThreads overrides the configured number of graph workers used on async devices.
//
// Parameters:
//   - threads: the worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the thread count option to a renderer
func WithExecutionThreads(threads int) RendererBuilderOption {
	return func(r *renderer) {
		r.executionThreads = threads
	}
}

// WithSubmissionPolicy overrides the configured order in which recorded command buffers are submitted.
//
// Parameters:
//   - policy: config.SubmissionOrdered submits in strictly ascending priority; config.SubmissionDependency submits
//     a buffer as soon as its dependencies have been recorded
//
// Returns:
//   - RendererBuilderOption: a function that applies the policy option to a renderer
func WithSubmissionPolicy(policy config.SubmissionPolicy) RendererBuilderOption {
	return func(r *renderer) {
		r.submissionPolicy = policy
	}
}

// WithSurfaceSize sets the size of the attachments created for each pass. It defaults to the configured window
// size.
//
// Parameters:
//   - width: the attachment width in pixels
//   - height: the attachment height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the surface size option to a renderer
func WithSurfaceSize(width, height uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.width = width
		r.height = height
	}
}
