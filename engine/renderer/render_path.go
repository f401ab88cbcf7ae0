package renderer

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
	"github.com/Carmen-Shannon/oxy-graph/engine/rendergraph"
)

// TargetKey is the output slot holding a node's framebuffer.
const TargetKey rendergraph.ResourceKey = "Target"

// RenderPath registers the passes of one renderer type into a graph.
type RenderPath interface {
	// Build adds the path's nodes and edges to g. It does not build priorities.
	//
	// Parameters:
	//   - g: the empty graph
	//   - d: the device the passes record against
	//   - surface: the size of the attachments to create
	//
	// Returns:
	//   - error: error if a node cannot be registered
	Build(g rendergraph.RenderGraph, d device.Device, surface surfaceSize) error
}

type surfaceSize struct {
	width  uint32
	height uint32
}

// attachment is one texture a pass renders into.
type attachment struct {
	key    rendergraph.ResourceKey
	format common.TextureFormat
}

// binding feeds a pass input from another pass's published output.
type binding struct {
	input  rendergraph.ResourceKey
	source rendergraph.ResourceKey
}

// materialFilter selects the entities a geometry pass draws. A nil filter draws every drawable entity.
type materialFilter func(m *ecs.MaterialComponent) bool

// passSpec declares a pass: geometry passes draw meshes from the draw list, post passes draw a full-screen quad
// over their inputs.
type passSpec struct {
	name        string
	attachments []attachment
	inputs      []binding
	geometry    bool
	filters     []materialFilter
}

// addPasses registers every pass and connects each edge, in order.
func addPasses(g rendergraph.RenderGraph, d device.Device, surface surfaceSize, specs []passSpec, edges [][2]string) error {
	for _, spec := range specs {
		var pass rendergraph.RenderPassFunc
		if spec.geometry {
			pass = geometryPass(d, spec.filters...)
		} else {
			pass = postPass(d, spec.inputs)
		}
		node := rendergraph.NewRenderNode(pass, rendergraph.WithSetupFunc(attachmentSetup(spec.name, spec.attachments, surface)))
		for _, in := range spec.inputs {
			node.SetInputResource(in.input, in.source)
		}
		if err := g.AddRenderNode(spec.name, node); err != nil {
			return err
		}
	}
	for _, e := range edges {
		from, to := g.GetNodeByName(e[0]), g.GetNodeByName(e[1])
		if from == nil || to == nil {
			return fmt.Errorf("%w: edge %s -> %s names an unregistered node", rendergraph.ErrInvalidNode, e[0], e[1])
		}
		from.ConnectNext(to)
	}
	return nil
}

// attachmentSetup creates a pass's textures and the framebuffer that binds them.
func attachmentSetup(name string, attachments []attachment, surface surfaceSize) rendergraph.SetupFunc {
	return func(ctx context.Context, d device.Device, output *rendergraph.ResourceTable) error {
		info := device.FrameBufferCreateInfo{Label: name + "." + string(TargetKey)}
		for _, a := range attachments {
			if err := ctx.Err(); err != nil {
				return err
			}
			tex, err := d.CreateTexture2D(device.TextureCreateInfo{
				Label:   name + "." + string(a.key),
				Width:   surface.width,
				Height:  surface.height,
				Format:  a.format,
				Sampled: true,
			})
			if err != nil {
				return err
			}
			output.Add(a.key, tex)
			if a.format == common.TextureFormatDepth {
				info.DepthAttachment = tex
			} else {
				info.ColorAttachments = append(info.ColorAttachments, tex)
			}
		}
		fb, err := d.CreateFrameBuffer(info)
		if err != nil {
			return err
		}
		output.Add(TargetKey, fb)
		return nil
	}
}

// geometryPass draws every enabled drawable entity accepted by all filters. Entities missing a transform, a mesh
// with a vertex buffer or a material are skipped.
func geometryPass(d device.Device, filters ...materialFilter) rendergraph.RenderPassFunc {
	return func(_, output *rendergraph.ResourceTable, ctx *rendergraph.RenderContext, cmd *rendergraph.CommandContext) {
		fb := output.FrameBuffer(TargetKey)
		if fb == nil {
			return
		}
		d.BeginRenderPass(fb, cmd.Buffer)
		for _, e := range ctx.DrawList {
			vb, indices, ok := drawable(e, filters)
			if !ok {
				continue
			}
			d.SetVertexBuffer(vb, cmd.Buffer)
			d.DrawPrimitive(indices, cmd.Buffer)
		}
		d.EndRenderPass(cmd.Buffer)
	}
}

// postPass draws a full-screen quad when every input is bound.
func postPass(d device.Device, inputs []binding) rendergraph.RenderPassFunc {
	return func(input, output *rendergraph.ResourceTable, _ *rendergraph.RenderContext, cmd *rendergraph.CommandContext) {
		fb := output.FrameBuffer(TargetKey)
		if fb == nil {
			return
		}
		d.BeginRenderPass(fb, cmd.Buffer)
		if inputsBound(input, inputs) {
			d.DrawFullScreenQuad(cmd.Buffer)
		}
		d.EndRenderPass(cmd.Buffer)
	}
}

func inputsBound(table *rendergraph.ResourceTable, inputs []binding) bool {
	for _, in := range inputs {
		if table.Get(in.input) == nil {
			return false
		}
	}
	return true
}

func drawable(e ecs.Entity, filters []materialFilter) (*device.VertexBuffer, uint32, bool) {
	if e == nil || !e.Enabled() || ecs.Transform(e) == nil {
		return nil, 0, false
	}
	mf, mat := ecs.MeshFilter(e), ecs.Material(e)
	if mf == nil || mf.Mesh == nil || mf.Mesh.VertexBuffer() == nil || mat == nil {
		return nil, 0, false
	}
	for _, accept := range filters {
		if !accept(mat) {
			return nil, 0, false
		}
	}
	return mf.Mesh.VertexBuffer(), mf.Mesh.IndexCount(), true
}

func opaque(m *ecs.MaterialComponent) bool       { return !m.Transparent }
func transparent(m *ecs.MaterialComponent) bool  { return m.Transparent }
func lines(m *ecs.MaterialComponent) bool        { return m.Lines }
func shadowCaster(m *ecs.MaterialComponent) bool { return m.CastShadows }
