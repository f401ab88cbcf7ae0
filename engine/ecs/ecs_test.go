package ecs

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/logging"
)

type recordingSystem struct {
	name   string
	events *[]string
	err    error
}

func (s *recordingSystem) Name() string { return s.name }
func (s *recordingSystem) Initialize(World) error {
	*s.events = append(*s.events, s.name+".init")
	return s.err
}
func (s *recordingSystem) FrameBegin(float32) { *s.events = append(*s.events, s.name+".begin") }
func (s *recordingSystem) Tick(float32)       { *s.events = append(*s.events, s.name+".tick") }
func (s *recordingSystem) FrameEnd(float32)   { *s.events = append(*s.events, s.name+".end") }
func (s *recordingSystem) ShutDown()          { *s.events = append(*s.events, s.name+".shutdown") }

func TestWorldSystemOrder(t *testing.T) {
	var events []string
	w := NewWorld(logging.Discard())
	w.RegisterSystem(10, &recordingSystem{name: "draw", events: &events})
	w.RegisterSystem(0, &recordingSystem{name: "anim", events: &events})

	if err := w.Initialize(); err != nil {
		t.Fatal(err)
	}
	w.Tick(0.016)
	w.ShutDown()

	want := []string{
		"anim.init", "draw.init",
		"anim.begin", "draw.begin",
		"anim.tick", "draw.tick",
		"anim.end", "draw.end",
		"draw.shutdown", "anim.shutdown",
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("system event order mismatch (-want +got):\n%s", diff)
	}
	if w.FrameCount() != 1 {
		t.Errorf("FrameCount() = %d, want 1", w.FrameCount())
	}
	if w.System("anim") == nil || w.System("missing") != nil {
		t.Error("System lookup by name failed")
	}
}

func TestWorldInitializeError(t *testing.T) {
	var events []string
	boom := errors.New("boom")
	w := NewWorld(logging.Discard())
	w.RegisterSystem(0, &recordingSystem{name: "bad", events: &events, err: boom})
	if err := w.Initialize(); !errors.Is(err, boom) {
		t.Fatalf("Initialize err = %v, want wrapped boom", err)
	}
}

func TestWorldEntities(t *testing.T) {
	w := NewWorld(logging.Discard())
	a := w.CreateEntity()
	cam := w.CreateEntity(WithTag(MainCameraTag), WithComponents(NewTransform(common.Vec3{0, 0, 5}), NewCamera(16.0/9.0)))
	c := w.CreateEntity()

	if a.ID() == cam.ID() || cam.ID() == c.ID() {
		t.Fatal("entity IDs must be unique")
	}
	if got := w.FindEntityWithTag(MainCameraTag); got != cam {
		t.Errorf("FindEntityWithTag returned %v, want camera entity", got)
	}
	if w.FindEntityWithTag("nobody") != nil {
		t.Error("FindEntityWithTag for a missing tag should return nil")
	}

	w.DestroyEntity(a.ID())
	var ids []uint64
	for _, e := range w.EntityList() {
		ids = append(ids, e.ID())
	}
	if diff := cmp.Diff([]uint64{cam.ID(), c.ID()}, ids); diff != "" {
		t.Errorf("entity list mismatch (-want +got):\n%s", diff)
	}
	if w.Entity(a.ID()) != nil {
		t.Error("destroyed entity is still reachable")
	}
}

func TestEntityComponents(t *testing.T) {
	e := NewEntity(WithComponents(NewTransform(common.Vec3{1, 2, 3}), &MaterialComponent{}))
	if !e.HasComponents(ComponentTypeTransform | ComponentTypeMaterial) {
		t.Fatal("expected transform and material")
	}
	if e.HasComponents(ComponentTypeMeshFilter) {
		t.Fatal("unexpected mesh filter")
	}
	if Transform(e).Position != (common.Vec3{1, 2, 3}) {
		t.Errorf("transform position = %v", Transform(e).Position)
	}

	e.RemoveComponent(ComponentTypeMaterial)
	if Material(e) != nil || e.HasComponents(ComponentTypeMaterial) {
		t.Error("material should be removed")
	}
	if MeshFilter(e) != nil || Camera(e) != nil || Light(e) != nil {
		t.Error("missing components should return nil")
	}
}

func TestMeshCreation(t *testing.T) {
	d := device.NewHeadlessDevice(common.DeviceTypeVulkan, device.WithLogger(logging.Discard()))
	m, err := NewPlaneMesh(d, 2)
	if err != nil {
		t.Fatal(err)
	}
	if m.VertexBuffer() == nil || m.IndexCount() != 6 {
		t.Errorf("plane mesh = %+v, want vertex buffer with 6 indices", m)
	}

	failing := device.NewHeadlessDevice(common.DeviceTypeVulkan, device.WithLogger(logging.Discard()), device.WithFailingResources("Plane"))
	m, err = NewPlaneMesh(failing, 2)
	if !errors.Is(err, device.ErrResourceCreation) {
		t.Fatalf("err = %v, want ErrResourceCreation", err)
	}
	if m == nil || m.VertexBuffer() != nil {
		t.Error("failed upload should return a mesh without a vertex buffer")
	}
}
