package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errAccessorBounds     = errors.New("accessor reads past the end of its buffer")
)

// gltfParser decodes a glTF or GLB document and reads its accessors as flat vertex streams.
type gltfParser struct {
	baseDir  string
	document *gltfDocument
	binChunk []byte
}

// parseFile reads a .gltf or .glb file. GLB is detected from the extension or the magic number.
func (p *gltfParser) parseFile(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic)
	return p.parse(data, isGLB)
}

// parseReader reads a document from r. Relative buffer URIs resolve against the working directory.
func (p *gltfParser) parseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	return p.parse(data, isGLB)
}

func (p *gltfParser) parse(data []byte, isGLB bool) error {
	if isGLB {
		jsonData, err := p.splitGLB(data)
		if err != nil {
			return err
		}
		data = jsonData
	}

	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if len(doc.ExtensionsRequired) > 0 {
		return fmt.Errorf("unsupported required extensions: %s", strings.Join(doc.ExtensionsRequired, ", "))
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = &doc
	return nil
}

// splitGLB validates the GLB header and returns the JSON chunk, keeping the BIN chunk for buffer 0.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParser) splitGLB(data []byte) ([]byte, error) {
	if len(data) < 12 {
		return nil, errors.New("GLB file too small")
	}

	r := bytes.NewReader(data)
	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return nil, errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return nil, errInvalidGLBVersion
	}

	var jsonData []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}
		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = body
		case gltfGLBChunkBIN:
			p.binChunk = body
		}
	}
	if jsonData == nil {
		return nil, errMissingJSONChunk
	}
	return jsonData, nil
}

func (p *gltfParser) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.binChunk != nil:
			buf.Data = p.binChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		default:
			data, err := p.loadBufferURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

func (p *gltfParser) loadBufferURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		data, err := os.ReadFile(filepath.Join(p.baseDir, uri))
		if err != nil {
			return nil, fmt.Errorf("failed to load buffer file %q: %w", uri, err)
		}
		return data, nil
	}

	// data:[<mediatype>][;base64],<data>
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, errInvalidBufferURI
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// accessorElements returns the raw, de-strided bytes of an accessor along with its element size.
func (p *gltfParser) accessorElements(index int) (*gltfAccessor, []byte, error) {
	if p.document == nil {
		return nil, nil, errors.New("no document loaded")
	}
	if index < 0 || index >= len(p.document.Accessors) {
		return nil, nil, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := &p.document.Accessors[index]
	if acc.Sparse != nil {
		return nil, nil, errors.New("sparse accessors are not supported")
	}
	if acc.BufferView == nil || *acc.BufferView >= len(p.document.BufferViews) {
		return nil, nil, fmt.Errorf("accessor %d has no valid bufferView", index)
	}

	bv := &p.document.BufferViews[*acc.BufferView]
	data := p.document.Buffers[bv.Buffer].Data
	elementSize := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if elementSize == 0 {
		return nil, nil, fmt.Errorf("accessor %d: unsupported layout %s/%d", index, acc.Type, acc.ComponentType)
	}
	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	start := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 && start+(acc.Count-1)*stride+elementSize > len(data) {
		return nil, nil, fmt.Errorf("accessor %d: %w", index, errAccessorBounds)
	}
	out := make([]byte, 0, acc.Count*elementSize)
	for i := 0; i < acc.Count; i++ {
		offset := start + i*stride
		out = append(out, data[offset:offset+elementSize]...)
	}
	return acc, out, nil
}

// readFloats reads a float accessor of the given type as a flat slice, e.g. xyzxyz... for VEC3.
func (p *gltfParser) readFloats(index int, accessorType string) ([]float32, error) {
	acc, data, err := p.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType || acc.ComponentType != gltfComponentTypeFloat {
		return nil, fmt.Errorf("accessor %d is %s/%d, want %s FLOAT", index, acc.Type, acc.ComponentType, accessorType)
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

// readIndices reads an unsigned scalar accessor widened to uint32.
func (p *gltfParser) readIndices(index int) ([]uint32, error) {
	acc, data, err := p.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("index accessor %d is %s, want SCALAR", index, acc.Type)
	}

	out := make([]uint32, acc.Count)
	for i := range out {
		switch acc.ComponentType {
		case gltfComponentTypeUnsignedByte:
			out[i] = uint32(data[i])
		case gltfComponentTypeUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		case gltfComponentTypeUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(data[i*4:])
		default:
			return nil, fmt.Errorf("unsupported index component type: %d", acc.ComponentType)
		}
	}
	return out, nil
}

func componentSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

func componentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	default:
		return 0
	}
}
