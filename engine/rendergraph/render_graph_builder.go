package rendergraph

import "github.com/charmbracelet/log"

// RenderGraphBuilderOption is a functional option for configuring a RenderGraph.
type RenderGraphBuilderOption func(*renderGraph)

// WithExecutionThreads overrides the configured number of execution workers.
//
// Parameters:
//   - threads: the worker count; values below 1 fall back to the default
//
// Returns:
//   - RenderGraphBuilderOption: option function to apply
func WithExecutionThreads(threads int) RenderGraphBuilderOption {
	return func(g *renderGraph) {
		g.executionThreads = threads
	}
}

// WithLogger overrides the context logger.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - RenderGraphBuilderOption: option function to apply
func WithLogger(logger *log.Logger) RenderGraphBuilderOption {
	return func(g *renderGraph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithCommandRecordedFunc sets the hook that receives each node's command buffer in parallel mode.
//
// Parameters:
//   - fn: the hook
//
// Returns:
//   - RenderGraphBuilderOption: option function to apply
func WithCommandRecordedFunc(fn CommandRecordedFunc) RenderGraphBuilderOption {
	return func(g *renderGraph) {
		g.onCommandRecorded = fn
	}
}
