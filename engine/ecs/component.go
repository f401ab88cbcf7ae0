package ecs

import (
	"github.com/Carmen-Shannon/oxy-graph/common"
)

// ComponentType is a bit flag identifying a component kind. Entities keep a bitmap of the kinds they carry.
type ComponentType uint32

const (
	ComponentTypeTransform ComponentType = 1 << iota
	ComponentTypeMeshFilter
	ComponentTypeMeshRenderer
	ComponentTypeMaterial
	ComponentTypeCamera
	ComponentTypeLight
	ComponentTypeScript
)

// Component is data attached to an Entity.
type Component interface {
	// Type returns the component kind.
	//
	// Returns:
	//   - ComponentType: the kind bit
	Type() ComponentType
}

// TransformComponent places an entity in world space.
type TransformComponent struct {
	Position common.Vec3
	Rotation common.Vec3
	Scale    common.Vec3
}

// NewTransform creates a transform at position with unit scale.
func NewTransform(position common.Vec3) *TransformComponent {
	return &TransformComponent{Position: position, Scale: common.Vec3{1, 1, 1}}
}

func (t *TransformComponent) Type() ComponentType { return ComponentTypeTransform }

// ModelMatrix returns the world matrix of the transform.
func (t *TransformComponent) ModelMatrix() common.Mat4 {
	return common.ModelMatrix(t.Position, t.Rotation, t.Scale)
}

// MeshFilterComponent references the mesh an entity draws.
type MeshFilterComponent struct {
	Mesh *Mesh
}

func (m *MeshFilterComponent) Type() ComponentType { return ComponentTypeMeshFilter }

// MeshRendererComponent routes an entity to the renderer that draws it.
type MeshRendererComponent struct {
	Renderer common.RendererType
}

func (m *MeshRendererComponent) Type() ComponentType { return ComponentTypeMeshRenderer }

// MaterialComponent holds the surface properties a pass needs to decide whether and how to draw an entity.
type MaterialComponent struct {
	Albedo [4]float32

	// Transparent entities are drawn by the transparency pass instead of the opaque passes.
	Transparent bool

	// Lines entities are drawn by the line drawing pass.
	Lines bool

	// CastShadows includes the entity in the shadow map pass.
	CastShadows bool
}

func (m *MaterialComponent) Type() ComponentType { return ComponentTypeMaterial }

// CameraComponent is a perspective camera. The entity's transform supplies the eye position.
type CameraComponent struct {
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32
	Target common.Vec3
}

// NewCamera creates a camera with a 60 degree vertical field of view looking at the origin.
func NewCamera(aspect float32) *CameraComponent {
	return &CameraComponent{
		FOV:    1.0471976,
		Aspect: aspect,
		Near:   0.1,
		Far:    1000,
	}
}

func (c *CameraComponent) Type() ComponentType { return ComponentTypeCamera }

// ProjectionMatrix returns the camera projection.
func (c *CameraComponent) ProjectionMatrix() common.Mat4 {
	return common.Perspective(c.FOV, c.Aspect, c.Near, c.Far)
}

// ViewMatrix returns the view matrix for a camera placed at eye.
func (c *CameraComponent) ViewMatrix(eye common.Vec3) common.Mat4 {
	return common.LookAt(eye, c.Target, common.Vec3{0, 1, 0})
}

// LightComponent is a point light.
type LightComponent struct {
	Color     common.Vec3
	Intensity float32
	Radius    float32
}

func (l *LightComponent) Type() ComponentType { return ComponentTypeLight }

// ScriptComponent runs per-tick behaviour for an entity. Scripts run concurrently across entities and must only
// touch their own entity.
type ScriptComponent struct {
	Update func(e Entity, deltaTime float32)
}

func (s *ScriptComponent) Type() ComponentType { return ComponentTypeScript }
