package renderer

import (
	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/rendergraph"
)

// Standard renderer node names, in registration order.
const (
	NodeShadowMap        = "ShadowMap"
	NodeGBuffer          = "GBuffer"
	NodeOpaque           = "Opaque"
	NodeDeferredLighting = "DeferredLighting"
	NodeBlur             = "Blur"
	NodeLineDrawing      = "LineDrawing"
	NodeTransparency     = "Transparency"
	NodeBlend            = "Blend"
	NodeDOF              = "DOF"
)

// standardRenderPath is the deferred pipeline: shadow and G-buffer passes feed an opaque pass, followed by a chain
// of lighting and post-processing passes.
type standardRenderPath struct{}

var _ RenderPath = &standardRenderPath{}

var standardPasses = []passSpec{
	{
		name:        NodeShadowMap,
		attachments: []attachment{{"Depth", common.TextureFormatDepth}},
		geometry:    true,
		filters:     []materialFilter{shadowCaster},
	},
	{
		name: NodeGBuffer,
		attachments: []attachment{
			{"Position", common.TextureFormatRGBA32F},
			{"Normal", common.TextureFormatRGBA32F},
			{"Albedo", common.TextureFormatRGBA8},
			{"Depth", common.TextureFormatDepth},
		},
		geometry: true,
		filters:  []materialFilter{opaque},
	},
	{
		name:        NodeOpaque,
		attachments: []attachment{{"Color", common.TextureFormatRGBA8}, {"Depth", common.TextureFormatDepth}},
		inputs:      []binding{{"ShadowDepth", "ShadowMap.Depth"}, {"Normal", "GBuffer.Normal"}},
		geometry:    true,
		filters:     []materialFilter{opaque},
	},
	{
		name:        NodeDeferredLighting,
		attachments: []attachment{{"Color", common.TextureFormatRGBA8}},
		inputs: []binding{
			{"Color", "Opaque.Color"},
			{"Position", "GBuffer.Position"},
			{"Normal", "GBuffer.Normal"},
			{"Albedo", "GBuffer.Albedo"},
		},
	},
	{
		name:        NodeBlur,
		attachments: []attachment{{"Color", common.TextureFormatRGBA8}},
		inputs:      []binding{{"Color", "DeferredLighting.Color"}},
	},
	{
		name:        NodeLineDrawing,
		attachments: []attachment{{"Color", common.TextureFormatRGBA8}},
		inputs:      []binding{{"Color", "Blur.Color"}, {"Depth", "Opaque.Depth"}},
		geometry:    true,
		filters:     []materialFilter{lines},
	},
	{
		name:        NodeTransparency,
		attachments: []attachment{{"Color", common.TextureFormatRGBA8}},
		inputs:      []binding{{"Depth", "Opaque.Depth"}},
		geometry:    true,
		filters:     []materialFilter{transparent},
	},
	{
		name:        NodeBlend,
		attachments: []attachment{{"Color", common.TextureFormatRGBA8}},
		inputs:      []binding{{"Opaque", "LineDrawing.Color"}, {"Transparent", "Transparency.Color"}},
	},
	{
		name:        NodeDOF,
		attachments: []attachment{{"Color", common.TextureFormatRGBA8}},
		inputs:      []binding{{"Color", "Blend.Color"}, {"Position", "GBuffer.Position"}, {"Focus", "Opaque.Color"}},
	},
}

var standardEdges = [][2]string{
	{NodeShadowMap, NodeOpaque},
	{NodeGBuffer, NodeOpaque},
	{NodeOpaque, NodeDeferredLighting},
	{NodeDeferredLighting, NodeBlur},
	{NodeBlur, NodeLineDrawing},
	{NodeLineDrawing, NodeTransparency},
	{NodeTransparency, NodeBlend},
	{NodeBlend, NodeDOF},
}

func (p *standardRenderPath) Build(g rendergraph.RenderGraph, d device.Device, surface surfaceSize) error {
	return addPasses(g, d, surface, standardPasses, standardEdges)
}
