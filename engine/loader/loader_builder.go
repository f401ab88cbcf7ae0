package loader

import (
	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger sets the loader's logger.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithLogger(logger *log.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger.With("component", "loader")
		}
	}
}

// WithMeshes pre-populates the cache, e.g. with procedurally built meshes.
//
// Parameters:
//   - key: the cache key
//   - meshes: the meshes to cache
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithMeshes(key string, meshes ...*ecs.Mesh) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[key] = meshes
	}
}
