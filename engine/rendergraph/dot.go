package rendergraph

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts a graph to Graphviz DOT format. Nodes are emitted in priority order when priorities have been built
// and in registration order otherwise; edges follow connection order.
//
// Parameters:
//   - g: the graph to export
//
// Returns:
//   - string: the DOT source
func ToDOT(g RenderGraph) string {
	nodes := g.Nodes()
	ordered := make([]RenderNode, len(nodes))
	copy(ordered, nodes)
	if sortedByPriority(ordered) {
		for _, n := range nodes {
			ordered[n.Priority()] = n
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph RenderGraph {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	for _, n := range ordered {
		label := n.Name()
		if p := n.Priority(); p >= 0 {
			label = fmt.Sprintf("%s\npriority: %d", n.Name(), p)
		}
		fmt.Fprintf(&buf, "  %q [label=%q];\n", n.Name(), label)
	}

	buf.WriteString("\n")
	for _, n := range ordered {
		for _, next := range n.NextNodes() {
			fmt.Fprintf(&buf, "  %q -> %q;\n", n.Name(), next.Name())
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// sortedByPriority reports whether every node has a distinct priority in [0, len).
func sortedByPriority(nodes []RenderNode) bool {
	seen := make([]bool, len(nodes))
	for _, n := range nodes {
		p := n.Priority()
		if p < 0 || p >= len(nodes) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

// RenderSVG renders DOT source to SVG using Graphviz.
//
// Parameters:
//   - ctx: the context for the Graphviz runtime
//   - dot: the DOT source, typically from ToDOT
//
// Returns:
//   - []byte: the SVG document
//   - error: error if Graphviz cannot parse or render the graph
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		return nil, fmt.Errorf("render: graphviz produced no svg document")
	}
	return buf.Bytes(), nil
}
