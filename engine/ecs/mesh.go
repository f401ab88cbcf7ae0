package ecs

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-graph/engine/device"
)

// Mesh is geometry uploaded to a device. A mesh whose upload failed has no vertex buffer and is skipped by every
// pass that draws it.
type Mesh struct {
	name         string
	vertexBuffer *device.VertexBuffer
	indexCount   uint32
}

// NewMeshFromVertices uploads vertex data to the device.
//
// Parameters:
//   - d: the device to upload to
//   - name: the mesh name, used as the buffer label
//   - positions: xyz positions
//   - normals: xyz normals, may be nil
//   - texCoords: uv coordinates, may be nil
//   - indices: triangle indices
//
// Returns:
//   - *Mesh: the mesh, always non-nil; its vertex buffer is nil if the upload failed
//   - error: the wrapped device error if the upload failed
func NewMeshFromVertices(d device.Device, name string, positions, normals, texCoords []float32, indices []uint32) (*Mesh, error) {
	m := &Mesh{name: name, indexCount: uint32(len(indices))}
	if d == nil {
		return m, fmt.Errorf("mesh %s: no device to create vertex buffer", name)
	}
	vb, err := d.CreateVertexBuffer(device.VertexBufferCreateInfo{
		Label:     name,
		Positions: positions,
		Normals:   normals,
		TexCoords: texCoords,
		Indices:   indices,
	})
	if err != nil {
		return m, fmt.Errorf("mesh %s: %w", name, err)
	}
	m.vertexBuffer = vb
	return m, nil
}

// NewPlaneMesh creates a square plane of the given size on the XZ axis, facing +Y.
//
// Parameters:
//   - d: the device to upload to
//   - size: the edge length
//
// Returns:
//   - *Mesh: the plane mesh
//   - error: the upload error, if any
func NewPlaneMesh(d device.Device, size float32) (*Mesh, error) {
	h := size / 2
	positions := []float32{
		-h, 0, -h,
		h, 0, -h,
		h, 0, h,
		-h, 0, h,
	}
	normals := []float32{0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0}
	texCoords := []float32{0, 0, 1, 0, 1, 1, 0, 1}
	indices := []uint32{0, 2, 1, 0, 3, 2}
	return NewMeshFromVertices(d, "Plane", positions, normals, texCoords, indices)
}

// Name returns the mesh name.
func (m *Mesh) Name() string { return m.name }

// VertexBuffer returns the uploaded buffer, or nil if the upload failed.
func (m *Mesh) VertexBuffer() *device.VertexBuffer { return m.vertexBuffer }

// IndexCount returns the number of indices to draw.
func (m *Mesh) IndexCount() uint32 { return m.indexCount }
