package loader

import (
	"fmt"
	"math"
)

// meshData is triangle geometry decoded from one glTF primitive, laid out the way
// device.VertexBufferCreateInfo expects it.
type meshData struct {
	name      string
	positions []float32
	normals   []float32
	texCoords []float32
	indices   []uint32
}

// extractMeshes decodes every primitive of every mesh in document order.
func extractMeshes(p *gltfParser) ([]meshData, error) {
	var out []meshData
	for meshIndex, mesh := range p.document.Meshes {
		for primIndex := range mesh.Primitives {
			md, err := extractPrimitive(p, &mesh.Primitives[primIndex], primitiveName(mesh.Name, meshIndex, primIndex))
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIndex, err)
			}
			out = append(out, md)
		}
	}
	return out, nil
}

func primitiveName(meshName string, meshIndex, primIndex int) string {
	if meshName == "" {
		meshName = fmt.Sprintf("mesh_%d", meshIndex)
	}
	if primIndex > 0 {
		return fmt.Sprintf("%s_prim%d", meshName, primIndex)
	}
	return meshName
}

func extractPrimitive(p *gltfParser, prim *gltfPrimitive, name string) (meshData, error) {
	md := meshData{name: name}
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return md, fmt.Errorf("unsupported primitive mode %d, only triangles are supported", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return md, fmt.Errorf("primitive has no POSITION attribute")
	}
	var err error
	if md.positions, err = p.readFloats(posAccessor, gltfAccessorTypeVec3); err != nil {
		return md, fmt.Errorf("failed to read positions: %w", err)
	}
	vertexCount := len(md.positions) / 3

	if a, ok := prim.Attributes["NORMAL"]; ok {
		if md.normals, err = p.readFloats(a, gltfAccessorTypeVec3); err != nil {
			return md, fmt.Errorf("failed to read normals: %w", err)
		}
	}
	if a, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if md.texCoords, err = p.readFloats(a, gltfAccessorTypeVec2); err != nil {
			return md, fmt.Errorf("failed to read texcoords: %w", err)
		}
	}

	if prim.Indices != nil {
		if md.indices, err = p.readIndices(*prim.Indices); err != nil {
			return md, fmt.Errorf("failed to read indices: %w", err)
		}
		for _, idx := range md.indices {
			if int(idx) >= vertexCount {
				return md, fmt.Errorf("index %d out of range for %d vertices", idx, vertexCount)
			}
		}
	} else {
		md.indices = make([]uint32, vertexCount)
		for i := range md.indices {
			md.indices[i] = uint32(i)
		}
	}

	if md.normals == nil && len(md.indices) >= 3 {
		md.normals = generateNormals(md.positions, md.indices)
	}
	return md, nil
}

// generateNormals computes smooth per-vertex normals by accumulating area-weighted face normals over every
// triangle that shares the vertex. Vertices touched by no triangle get +Y.
func generateNormals(positions []float32, indices []uint32) []float32 {
	accum := make([]float32, len(positions))
	vertex := func(i uint32) [3]float32 {
		return [3]float32{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}

	for i := 0; i+2 < len(indices); i += 3 {
		tri := [3]uint32{indices[i], indices[i+1], indices[i+2]}
		p0, p1, p2 := vertex(tri[0]), vertex(tri[1]), vertex(tri[2])
		e1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		face := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		for _, idx := range tri {
			accum[idx*3] += face[0]
			accum[idx*3+1] += face[1]
			accum[idx*3+2] += face[2]
		}
	}

	for i := 0; i < len(accum); i += 3 {
		length := float32(math.Sqrt(float64(accum[i]*accum[i] + accum[i+1]*accum[i+1] + accum[i+2]*accum[i+2])))
		if length < 1e-6 {
			accum[i], accum[i+1], accum[i+2] = 0, 1, 0
			continue
		}
		accum[i] /= length
		accum[i+1] /= length
		accum[i+2] /= length
	}
	return accum
}
