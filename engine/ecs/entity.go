package ecs

import (
	"sync"
	"sync/atomic"
)

// Entity is a world object made of components.
type Entity interface {
	// ID returns the entity's unique identifier within its world.
	//
	// Returns:
	//   - uint64: the entity ID
	ID() uint64

	// Tag returns the entity's tag, or an empty string.
	//
	// Returns:
	//   - string: the tag
	Tag() string

	// SetTag sets the entity's tag. Tags are used to find well-known entities such as the main camera.
	//
	// Parameters:
	//   - tag: the tag to assign
	SetTag(tag string)

	// Enabled returns whether the entity takes part in ticking and drawing.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled enables or disables the entity.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// AddComponent attaches a component, replacing any component of the same type.
	//
	// Parameters:
	//   - c: the component to attach
	AddComponent(c Component)

	// RemoveComponent detaches the component of the given type, if present.
	//
	// Parameters:
	//   - t: the component type to remove
	RemoveComponent(t ComponentType)

	// Component returns the component of the given type, or nil.
	//
	// Parameters:
	//   - t: the component type
	//
	// Returns:
	//   - Component: the attached component or nil
	Component(t ComponentType) Component

	// ComponentBitmap returns the OR of every attached component type.
	//
	// Returns:
	//   - ComponentType: the component bitmap
	ComponentBitmap() ComponentType

	// HasComponents reports whether every bit in mask is attached.
	//
	// Parameters:
	//   - mask: the component types required
	//
	// Returns:
	//   - bool: true if all are attached
	HasComponents(mask ComponentType) bool
}

type entity struct {
	mu         *sync.RWMutex
	id         uint64
	tag        string
	enabled    atomic.Bool
	bitmap     ComponentType
	components map[ComponentType]Component
}

var _ Entity = &entity{}

// NewEntity creates a detached entity. Worlds assign IDs through World.CreateEntity; a detached entity keeps ID 0
// unless WithID is given.
//
// Parameters:
//   - options: functional options for entity configuration
//
// Returns:
//   - Entity: the new, enabled entity
func NewEntity(options ...EntityBuilderOption) Entity {
	e := &entity{
		mu:         &sync.RWMutex{},
		components: make(map[ComponentType]Component),
	}
	e.enabled.Store(true)
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *entity) ID() uint64 {
	return e.id
}

func (e *entity) Tag() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tag
}

func (e *entity) SetTag(tag string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tag = tag
}

func (e *entity) Enabled() bool {
	return e.enabled.Load()
}

func (e *entity) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

func (e *entity) AddComponent(c Component) {
	if c == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.components[c.Type()] = c
	e.bitmap |= c.Type()
}

func (e *entity) RemoveComponent(t ComponentType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.components, t)
	e.bitmap &^= t
}

func (e *entity) Component(t ComponentType) Component {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.components[t]
}

func (e *entity) ComponentBitmap() ComponentType {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bitmap
}

func (e *entity) HasComponents(mask ComponentType) bool {
	return e.ComponentBitmap()&mask == mask
}

// Transform returns the entity's transform component, or nil.
func Transform(e Entity) *TransformComponent {
	c, _ := e.Component(ComponentTypeTransform).(*TransformComponent)
	return c
}

// MeshFilter returns the entity's mesh filter component, or nil.
func MeshFilter(e Entity) *MeshFilterComponent {
	c, _ := e.Component(ComponentTypeMeshFilter).(*MeshFilterComponent)
	return c
}

// Material returns the entity's material component, or nil.
func Material(e Entity) *MaterialComponent {
	c, _ := e.Component(ComponentTypeMaterial).(*MaterialComponent)
	return c
}

// Camera returns the entity's camera component, or nil.
func Camera(e Entity) *CameraComponent {
	c, _ := e.Component(ComponentTypeCamera).(*CameraComponent)
	return c
}

// Light returns the entity's light component, or nil.
func Light(e Entity) *LightComponent {
	c, _ := e.Component(ComponentTypeLight).(*LightComponent)
	return c
}
