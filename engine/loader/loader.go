// Package loader imports glTF 2.0 geometry and uploads it to a device as ecs meshes.
package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
)

// loaderBackend decodes one file format into device-ready mesh data.
type loaderBackend interface {
	// Load decodes the file at path.
	Load(path string) ([]meshData, error)

	// LoadReader decodes a stream; isGLB selects the binary container.
	LoadReader(r io.Reader, isGLB bool) ([]meshData, error)
}

type gltfLoaderBackend struct{}

func (gltfLoaderBackend) Load(path string) ([]meshData, error) {
	p := &gltfParser{}
	if err := p.parseFile(path); err != nil {
		return nil, err
	}
	return extractMeshes(p)
}

func (gltfLoaderBackend) LoadReader(r io.Reader, isGLB bool) ([]meshData, error) {
	p := &gltfParser{}
	if err := p.parseReader(r, isGLB); err != nil {
		return nil, err
	}
	return extractMeshes(p)
}

// Loader imports model files and caches the uploaded meshes by name.
type Loader interface {
	// Load imports a .gltf or .glb file, or returns the cached meshes for path.
	//
	// Parameters:
	//   - path: the model file path, also used as the cache key
	//
	// Returns:
	//   - []*ecs.Mesh: one mesh per glTF primitive
	//   - error: error if the format is unsupported or the file cannot be decoded
	Load(path string) ([]*ecs.Mesh, error)

	// LoadReader imports a model from a stream and caches it under name.
	//
	// Parameters:
	//   - name: the cache key
	//   - r: the model data
	//   - isGLB: true for the binary container, false for glTF JSON
	//
	// Returns:
	//   - []*ecs.Mesh: one mesh per glTF primitive
	//   - error: error if the stream cannot be decoded
	LoadReader(name string, r io.Reader, isGLB bool) ([]*ecs.Mesh, error)

	// Get returns the cached meshes for name, or nil.
	//
	// Parameters:
	//   - name: the cache key
	//
	// Returns:
	//   - []*ecs.Mesh: the cached meshes or nil
	Get(name string) []*ecs.Mesh

	// Names returns every cache key in sorted order.
	//
	// Returns:
	//   - []string: the cache keys
	Names() []string
}

type loader struct {
	mu      *sync.RWMutex
	device  device.Device
	logger  *log.Logger
	backend loaderBackend
	cache   map[string][]*ecs.Mesh
}

var _ Loader = &loader{}

// NewLoader creates a glTF loader that uploads geometry to d.
//
// Parameters:
//   - d: the device meshes are uploaded to
//   - options: functional options for loader configuration
//
// Returns:
//   - Loader: the new loader
func NewLoader(d device.Device, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:      &sync.RWMutex{},
		device:  d,
		logger:  log.Default(),
		backend: gltfLoaderBackend{},
		cache:   make(map[string][]*ecs.Mesh),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *loader) Load(path string) ([]*ecs.Mesh, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
	default:
		return nil, fmt.Errorf("unsupported model format: %q", ext)
	}

	data, err := l.backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(path, data), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) ([]*ecs.Mesh, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	data, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.store(name, data), nil
}

func (l *loader) Get(name string) []*ecs.Mesh {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[name]
}

func (l *loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.cache))
	for name := range l.cache {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// store uploads decoded meshes and caches them. A failed upload keeps the mesh without a vertex buffer so every
// pass skips it; the rest of the model still loads.
func (l *loader) store(name string, data []meshData) []*ecs.Mesh {
	meshes := make([]*ecs.Mesh, 0, len(data))
	for _, md := range data {
		m, err := ecs.NewMeshFromVertices(l.device, md.name, md.positions, md.normals, md.texCoords, md.indices)
		if err != nil {
			l.logger.Warn("mesh upload failed, mesh will not be drawn", "model", name, "mesh", md.name, "err", err)
		}
		meshes = append(meshes, m)
	}
	l.logger.Debug("model loaded", "model", name, "meshes", len(meshes))

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[name] = meshes
	return meshes
}
