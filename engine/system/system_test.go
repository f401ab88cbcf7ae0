package system

import (
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
	"github.com/Carmen-Shannon/oxy-graph/engine/logging"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
)

func newDrawingWorld(t *testing.T, deviceType common.DeviceType, withCamera bool) (ecs.World, DrawingSystem, *device.HeadlessDevice, *config.Context) {
	t.Helper()
	cfg := config.Default()
	cfg.Graphics.Device = deviceType.String()
	cfg.Graphics.Renderers = []string{"standard", "forward"}
	ctx := config.NewContext(cfg, logging.Discard())
	d := device.NewHeadlessDevice(deviceType, device.WithLogger(logging.Discard()))

	w := ecs.NewWorld(logging.Discard())
	ds := NewDrawingSystem(ctx, WithDevice(d), WithRendererOptions(renderer.WithSurfaceSize(16, 16)))
	w.RegisterSystem(100, ds)
	if err := w.Initialize(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.ShutDown)

	plane, err := ecs.NewPlaneMesh(d, 1)
	if err != nil {
		t.Fatal(err)
	}
	if withCamera {
		w.CreateEntity(ecs.WithTag(ecs.MainCameraTag), ecs.WithComponents(ecs.NewTransform(common.Vec3{0, 0, 5}), ecs.NewCamera(1)))
	}
	w.CreateEntity(ecs.WithComponents(
		ecs.NewTransform(common.Vec3{}),
		&ecs.MeshFilterComponent{Mesh: plane},
		&ecs.MeshRendererComponent{Renderer: common.RendererTypeStandard},
		&ecs.MaterialComponent{},
	))
	w.CreateEntity(ecs.WithComponents(
		ecs.NewTransform(common.Vec3{}),
		&ecs.MeshFilterComponent{Mesh: plane},
		&ecs.MeshRendererComponent{Renderer: common.RendererTypeForward},
		&ecs.MaterialComponent{},
	))
	w.CreateEntity(ecs.WithComponents(ecs.NewTransform(common.Vec3{0, 3, 0}), &ecs.LightComponent{Intensity: 1}))
	return w, ds, d, ctx
}

func drawCount(s device.Submission) int {
	n := 0
	for _, c := range s.Commands {
		if c.Op == device.OpDrawPrimitive {
			n++
		}
	}
	return n
}

func TestDrawingSystemDrawsEveryRenderer(t *testing.T) {
	w, ds, d, ctx := newDrawingWorld(t, common.DeviceTypeOpenGL, true)
	if !ctx.QueryGlobalState(config.StateRenderGraphBuilt) || !ctx.QueryGlobalState(config.StateDeviceReady) {
		t.Fatal("global states were not marked")
	}
	if ds.Renderer(common.RendererTypeStandard) == nil || ds.Renderer(common.RendererTypeForward) == nil {
		t.Fatal("configured renderers were not built")
	}

	w.Tick(0.016)
	first := d.Submissions()
	if len(first) != 2 {
		t.Fatalf("got %d submissions, want one per renderer", len(first))
	}

	w.Tick(0.016)
	all := d.Submissions()
	if len(all) != 4 {
		t.Fatalf("got %d submissions after two ticks, want 4", len(all))
	}
	for i := range first {
		if drawCount(all[i]) != drawCount(all[i+2]) {
			t.Errorf("renderer %d drew %d then %d primitives; draw lists were not cleared", i, drawCount(all[i]), drawCount(all[i+2]))
		}
	}

	if d.PresentCount() != 2 || ds.Frames() != 2 {
		t.Errorf("presents = %d, frames = %d; want 2 and 2", d.PresentCount(), ds.Frames())
	}
	stats := ds.Stats()
	if stats[common.RendererTypeStandard].Frames != 2 || stats[common.RendererTypeForward].Nodes != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDrawingSystemWithoutCamera(t *testing.T) {
	w, _, d, _ := newDrawingWorld(t, common.DeviceTypeVulkan, false)
	w.Tick(0.016)
	if n := len(d.Submissions()); n != 0 {
		t.Errorf("got %d submissions without a camera, want 0", n)
	}
	if d.PresentCount() != 1 {
		t.Errorf("PresentCount() = %d, want 1", d.PresentCount())
	}
}

func TestAnimationSystem(t *testing.T) {
	w := ecs.NewWorld(logging.Discard())
	as := NewAnimationSystem(logging.Discard(), 4)
	w.RegisterSystem(0, as)
	if err := w.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer w.ShutDown()

	const entities = 40
	counters := make([]atomic.Int32, entities)
	for i := 0; i < entities; i++ {
		counter := &counters[i]
		w.CreateEntity(ecs.WithComponents(
			ecs.NewTransform(common.Vec3{}),
			&ecs.ScriptComponent{Update: func(e ecs.Entity, dt float32) {
				counter.Add(1)
				ecs.Transform(e).Position[1] += dt
			}},
		))
	}
	w.CreateEntity(ecs.WithComponents(&ecs.ScriptComponent{Update: func(ecs.Entity, float32) { panic("bad script") }}))
	w.CreateEntity(ecs.WithEnabled(false), ecs.WithComponents(&ecs.ScriptComponent{Update: func(ecs.Entity, float32) {
		t.Error("disabled entity was updated")
	}}))

	for i := 0; i < 3; i++ {
		w.Tick(0.5)
	}

	for i := range counters {
		if got := counters[i].Load(); got != 3 {
			t.Fatalf("entity %d updated %d times, want 3", i, got)
		}
	}
	if as.Updates() != 3*(entities+1) {
		t.Errorf("Updates() = %d, want %d", as.Updates(), 3*(entities+1))
	}
}

func TestAnimationSystemShutDownStopsUpdates(t *testing.T) {
	w := ecs.NewWorld(logging.Discard())
	as := NewAnimationSystem(logging.Discard(), 2)
	w.RegisterSystem(0, as)
	if err := w.Initialize(); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w.CreateEntity(ecs.WithComponents(&ecs.ScriptComponent{Update: func(ecs.Entity, float32) { calls.Add(1) }}))
	w.Tick(0.1)
	as.ShutDown()
	as.ShutDown()
	w.Tick(0.1)

	if got := calls.Load(); got != 1 {
		t.Errorf("script ran %d times, want 1", got)
	}
	if as.Updates() != 1 {
		t.Errorf("Updates() = %d, want 1", as.Updates())
	}
}
