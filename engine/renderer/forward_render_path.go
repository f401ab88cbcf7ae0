package renderer

import (
	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/rendergraph"
)

// NodeForward is the forward renderer's only node.
const NodeForward = "Forward"

// forwardRenderPath draws everything in one pass, opaque entities first.
type forwardRenderPath struct{}

var _ RenderPath = &forwardRenderPath{}

func (p *forwardRenderPath) Build(g rendergraph.RenderGraph, d device.Device, surface surfaceSize) error {
	attachments := []attachment{{"Color", common.TextureFormatRGBA8}, {"Depth", common.TextureFormatDepth}}
	node := rendergraph.NewRenderNode(forwardPass(d), rendergraph.WithSetupFunc(attachmentSetup(NodeForward, attachments, surface)))
	return g.AddRenderNode(NodeForward, node)
}

func forwardPass(d device.Device) rendergraph.RenderPassFunc {
	return func(_, output *rendergraph.ResourceTable, ctx *rendergraph.RenderContext, cmd *rendergraph.CommandContext) {
		fb := output.FrameBuffer(TargetKey)
		if fb == nil {
			return
		}
		d.BeginRenderPass(fb, cmd.Buffer)
		for _, filter := range []materialFilter{opaque, transparent} {
			for _, e := range ctx.DrawList {
				vb, indices, ok := drawable(e, []materialFilter{filter})
				if !ok {
					continue
				}
				d.SetVertexBuffer(vb, cmd.Buffer)
				d.DrawPrimitive(indices, cmd.Buffer)
			}
		}
		d.EndRenderPass(cmd.Buffer)
	}
}
