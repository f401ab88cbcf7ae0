package rendergraph

// RenderNodeBuilderOption is a functional option for configuring a RenderNode.
type RenderNodeBuilderOption func(*renderNode)

// WithInputTable sets the node's input table.
//
// Parameters:
//   - table: the input table; nil is ignored
//
// Returns:
//   - RenderNodeBuilderOption: option function to apply
func WithInputTable(table *ResourceTable) RenderNodeBuilderOption {
	return func(n *renderNode) {
		if table != nil {
			n.input = table
		}
	}
}

// WithOutputTable sets the node's output table.
//
// Parameters:
//   - table: the output table; nil is ignored
//
// Returns:
//   - RenderNodeBuilderOption: option function to apply
func WithOutputTable(table *ResourceTable) RenderNodeBuilderOption {
	return func(n *renderNode) {
		if table != nil {
			n.output = table
		}
	}
}

// WithSetupFunc sets the function that creates the node's output resources during RenderGraph.SetupRenderNodes.
//
// Parameters:
//   - setup: the setup function
//
// Returns:
//   - RenderNodeBuilderOption: option function to apply
func WithSetupFunc(setup SetupFunc) RenderNodeBuilderOption {
	return func(n *renderNode) {
		n.setup = setup
	}
}
