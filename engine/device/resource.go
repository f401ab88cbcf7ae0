package device

import (
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-graph/common"
)

// RawResource is an opaque GPU resource handle. The device that created it owns its lifetime; everything else only
// references it.
type RawResource interface {
	// ID returns the unique handle id assigned at creation.
	ID() uuid.UUID

	// Label returns the debug label given at creation.
	Label() string
}

// TextureCreateInfo describes a 2D texture to create.
type TextureCreateInfo struct {
	Label  string
	Width  uint32
	Height uint32
	Format common.TextureFormat

	// Sampled marks the texture as readable by later passes in addition to being a render target.
	Sampled bool
}

// Texture2D is a 2D texture handle.
type Texture2D struct {
	id     uuid.UUID
	label  string
	width  uint32
	height uint32
	format common.TextureFormat
	native any
}

var _ RawResource = &Texture2D{}

func (t *Texture2D) ID() uuid.UUID                { return t.id }
func (t *Texture2D) Label() string                { return t.label }
func (t *Texture2D) Width() uint32                { return t.width }
func (t *Texture2D) Height() uint32               { return t.height }
func (t *Texture2D) Format() common.TextureFormat { return t.format }

// FrameBufferCreateInfo describes a render target made of existing textures.
type FrameBufferCreateInfo struct {
	Label string

	// ColorAttachments are bound in order. Every attachment must share the framebuffer size.
	ColorAttachments []*Texture2D

	// DepthAttachment is optional.
	DepthAttachment *Texture2D
}

// FrameBuffer is a render target handle grouping color and depth attachments.
type FrameBuffer struct {
	id     uuid.UUID
	label  string
	width  uint32
	height uint32
	colors []*Texture2D
	depth  *Texture2D
}

var _ RawResource = &FrameBuffer{}

func (f *FrameBuffer) ID() uuid.UUID                 { return f.id }
func (f *FrameBuffer) Label() string                 { return f.label }
func (f *FrameBuffer) Width() uint32                 { return f.width }
func (f *FrameBuffer) Height() uint32                { return f.height }
func (f *FrameBuffer) ColorAttachments() []*Texture2D { return f.colors }
func (f *FrameBuffer) DepthAttachment() *Texture2D    { return f.depth }

// VertexBufferCreateInfo describes interleaved vertex data and an optional index list.
type VertexBufferCreateInfo struct {
	Label     string
	Positions []float32
	Normals   []float32
	TexCoords []float32
	Indices   []uint32
}

// VertexBuffer is a vertex/index buffer pair handle.
type VertexBuffer struct {
	id          uuid.UUID
	label       string
	vertexCount uint32
	indexCount  uint32
	native      any
}

var _ RawResource = &VertexBuffer{}

func (v *VertexBuffer) ID() uuid.UUID       { return v.id }
func (v *VertexBuffer) Label() string       { return v.label }
func (v *VertexBuffer) VertexCount() uint32 { return v.vertexCount }
func (v *VertexBuffer) IndexCount() uint32  { return v.indexCount }

// interleave packs positions, normals and texture coordinates into one stride-8 float slice.
// Missing normals or texture coordinates are zero filled.
func interleave(info VertexBufferCreateInfo) []float32 {
	count := len(info.Positions) / 3
	out := make([]float32, 0, count*8)
	for i := 0; i < count; i++ {
		out = append(out, info.Positions[i*3:i*3+3]...)
		if len(info.Normals) >= (i+1)*3 {
			out = append(out, info.Normals[i*3:i*3+3]...)
		} else {
			out = append(out, 0, 0, 0)
		}
		if len(info.TexCoords) >= (i+1)*2 {
			out = append(out, info.TexCoords[i*2:i*2+2]...)
		} else {
			out = append(out, 0, 0)
		}
	}
	return out
}
