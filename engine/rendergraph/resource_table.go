package rendergraph

import (
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-graph/engine/device"
)

// ResourceKey names a resource slot within one graph.
type ResourceKey string

// ResourceTable maps resource keys to device resources. A table references its resources but never owns them; the
// device that created a resource is responsible for releasing it.
//
// Tables are not safe for concurrent use. Each table belongs to one node and is only touched by that node's
// callback or by graph setup.
type ResourceTable struct {
	resources map[ResourceKey]device.RawResource
}

// NewResourceTable creates an empty table.
func NewResourceTable() *ResourceTable {
	return &ResourceTable{resources: make(map[ResourceKey]device.RawResource)}
}

// Add inserts a resource, overwriting any resource already stored under key.
//
// Parameters:
//   - key: the slot name
//   - resource: the resource to store
func (t *ResourceTable) Add(key ResourceKey, resource device.RawResource) {
	if t.resources == nil {
		t.resources = make(map[ResourceKey]device.RawResource)
	}
	t.resources[key] = resource
}

// Get returns the resource stored under key, or nil when the slot is empty.
//
// Parameters:
//   - key: the slot name
//
// Returns:
//   - device.RawResource: the resource or nil
func (t *ResourceTable) Get(key ResourceKey) device.RawResource {
	if t == nil {
		return nil
	}
	return t.resources[key]
}

// Texture returns the texture stored under key, or nil if the slot is empty or holds another kind of resource.
func (t *ResourceTable) Texture(key ResourceKey) *device.Texture2D {
	tex, _ := t.Get(key).(*device.Texture2D)
	return tex
}

// FrameBuffer returns the framebuffer stored under key, or nil if the slot is empty or holds another kind of
// resource.
func (t *ResourceTable) FrameBuffer(key ResourceKey) *device.FrameBuffer {
	fb, _ := t.Get(key).(*device.FrameBuffer)
	return fb
}

// Len returns the number of occupied slots.
func (t *ResourceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.resources)
}

// Keys returns the occupied slot names, sorted.
func (t *ResourceTable) Keys() []ResourceKey {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.resources))
}
