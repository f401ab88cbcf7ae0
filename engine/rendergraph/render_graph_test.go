package rendergraph

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/logging"
)

func newTestGraph(t *testing.T, deviceType common.DeviceType, options ...RenderGraphBuilderOption) (RenderGraph, *device.HeadlessDevice) {
	t.Helper()
	d := device.NewHeadlessDevice(deviceType, device.WithLogger(logging.Discard()))
	g := NewRenderGraph(config.NewContext(nil, logging.Discard()), d, options...)
	t.Cleanup(g.Close)
	return g, d
}

// executionLog records callback order across goroutines.
type executionLog struct {
	mu    sync.Mutex
	names []string
}

func (l *executionLog) pass(name string) RenderPassFunc {
	return func(_, _ *ResourceTable, _ *RenderContext, _ *CommandContext) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.names = append(l.names, name)
	}
}

func (l *executionLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// addDiamond registers A -> {B, C} -> D.
func addDiamond(t *testing.T, g RenderGraph, passFor func(name string) RenderPassFunc) map[string]RenderNode {
	t.Helper()
	nodes := make(map[string]RenderNode)
	for _, name := range []string{"A", "B", "C", "D"} {
		nodes[name] = NewRenderNode(passFor(name))
		if err := g.AddRenderNode(name, nodes[name]); err != nil {
			t.Fatal(err)
		}
	}
	nodes["A"].ConnectNext(nodes["B"])
	nodes["A"].ConnectNext(nodes["C"])
	nodes["B"].ConnectNext(nodes["D"])
	nodes["C"].ConnectNext(nodes["D"])
	return nodes
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the frame to finish")
	}
}

func TestDiamondPriorities(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	var l executionLog
	addDiamond(t, g, l.pass)

	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]int{"A": 0, "B": 1, "C": 2, "D": 3} {
		got, ok := g.NodePriority(name)
		if !ok || got != want {
			t.Errorf("NodePriority(%s) = %d, %v; want %d", name, got, ok, want)
		}
		if g.NodeNameByPriority(want) != name {
			t.Errorf("NodeNameByPriority(%d) = %q, want %q", want, g.NodeNameByPriority(want), name)
		}
	}

	want := map[int][]int{0: {}, 1: {0}, 2: {0}, 3: {1, 2}}
	if diff := cmp.Diff(want, g.NodePriorityDependencies(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("dependency map mismatch (-want +got):\n%s", diff)
	}
	if g.GetRenderNodeCount() != 4 {
		t.Errorf("GetRenderNodeCount() = %d, want 4", g.GetRenderNodeCount())
	}
}

func TestPrioritiesRespectEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
		count := 2 + rng.Intn(14)
		nodes := make([]RenderNode, count)
		for i := range nodes {
			nodes[i] = NewRenderNode(nil)
		}
		type edge struct{ from, to int }
		var edges []edge
		for i := 0; i < count; i++ {
			for j := i + 1; j < count; j++ {
				if rng.Intn(3) == 0 {
					nodes[i].ConnectNext(nodes[j])
					edges = append(edges, edge{i, j})
				}
			}
		}
		for _, i := range rng.Perm(count) {
			if err := g.AddRenderNode(fmt.Sprintf("n%d", i), nodes[i]); err != nil {
				t.Fatal(err)
			}
		}

		if err := g.BuildRenderNodePriorities(); err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}

		seen := make(map[int]bool)
		for _, n := range nodes {
			p := n.Priority()
			if p < 0 || p >= count || seen[p] {
				t.Fatalf("trial %d: priority %d of %s is out of range or repeated", trial, p, n.Name())
			}
			seen[p] = true
		}
		for _, e := range edges {
			if nodes[e.from].Priority() >= nodes[e.to].Priority() {
				t.Errorf("trial %d: edge %s -> %s has priorities %d >= %d", trial,
					nodes[e.from].Name(), nodes[e.to].Name(), nodes[e.from].Priority(), nodes[e.to].Priority())
			}
		}
	}
}

func TestRebuildPrioritiesIsIdempotent(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	var l executionLog
	nodes := addDiamond(t, g, l.pass)

	for name, n := range nodes {
		if n.FinishedExecution() {
			t.Errorf("%s finished before any frame", name)
		}
	}
	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}
	priorities := func() map[string]int {
		out := make(map[string]int, len(nodes))
		for name := range nodes {
			p, ok := g.NodePriority(name)
			if !ok {
				t.Fatalf("no priority for %s", name)
			}
			out[name] = p
		}
		return out
	}
	first := g.NodePriorityDependencies()
	firstPriorities := priorities()

	g.BeginRenderPasses(&RenderContext{})
	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, g.NodePriorityDependencies(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("rebuild changed the dependency map (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(firstPriorities, priorities()); diff != "" {
		t.Errorf("rebuild changed node priorities (-first +second):\n%s", diff)
	}
	for name, n := range nodes {
		if n.FinishedExecution() {
			t.Errorf("%s still marked finished after a priority build", name)
		}
	}
}

func TestCycleIsReported(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	a, b, c := NewRenderNode(nil), NewRenderNode(nil), NewRenderNode(nil)
	for name, n := range map[string]RenderNode{"A": a, "B": b, "C": c} {
		if err := g.AddRenderNode(name, n); err != nil {
			t.Fatal(err)
		}
	}
	a.ConnectNext(b)
	b.ConnectNext(c)
	c.ConnectNext(b)

	err := g.BuildRenderNodePriorities()
	if !errors.Is(err, ErrUnorderedNodes) {
		t.Fatalf("err = %v, want ErrUnorderedNodes", err)
	}
	if !strings.Contains(err.Error(), "B") || !strings.Contains(err.Error(), "C") {
		t.Errorf("error %q should name the nodes in the cycle", err)
	}
	if p, ok := g.NodePriority("A"); !ok || p != 0 {
		t.Errorf("NodePriority(A) = %d, %v; want 0", p, ok)
	}
	if _, ok := g.NodePriority("B"); ok {
		t.Error("a node caught in a cycle should have no priority")
	}
}

func TestAddRenderNodeValidation(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	other, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	n := NewRenderNode(nil)

	if err := g.AddRenderNode("", n); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("empty name: err = %v", err)
	}
	if err := g.AddRenderNode("A", n); err != nil {
		t.Fatal(err)
	}
	if err := g.AddRenderNode("A", NewRenderNode(nil)); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("duplicate name: err = %v", err)
	}
	if err := other.AddRenderNode("B", n); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("node registered twice: err = %v", err)
	}
	if g.GetNodeByName("A") != n {
		t.Error("GetNodeByName(A) did not return the registered node")
	}
	if g.GetNodeByName("missing") != nil {
		t.Error("GetNodeByName for an unknown name should return nil")
	}
}

func TestBeginRenderPassesSequential(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	var l executionLog
	nodes := addDiamond(t, g, l.pass)
	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}

	g.BeginRenderPasses(&RenderContext{Frame: 1})
	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, l.snapshot()); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
	for name, n := range nodes {
		if !n.FinishedExecution() {
			t.Errorf("%s not finished after the frame", name)
		}
		if n.Execute() {
			t.Errorf("%s executed twice in one frame", name)
		}
	}

	g.BeginRenderPasses(&RenderContext{Frame: 2})
	if got := len(l.snapshot()); got != 8 {
		t.Errorf("after two frames %d callbacks ran, want 8", got)
	}
}

func TestExecuteWaitsForPredecessors(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	var l executionLog
	nodes := addDiamond(t, g, l.pass)
	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}

	if nodes["D"].Execute() {
		t.Fatal("D ran before its predecessors")
	}
	nodes["A"].Execute()
	nodes["B"].Execute()
	if nodes["D"].Execute() {
		t.Fatal("D ran before C")
	}
	nodes["C"].Execute()
	if !nodes["D"].Execute() {
		t.Fatal("D did not run once B and C finished")
	}
}

func TestBeginRenderPassesParallelRequiresWorkers(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	if g.SupportsParallel() {
		t.Fatal("an immediate device should not start workers")
	}
	if err := g.BeginRenderPassesParallel(&RenderContext{}); !errors.Is(err, ErrNoWorkerPool) {
		t.Errorf("err = %v, want ErrNoWorkerPool", err)
	}
	if g.EnqueueRenderNode(NewRenderNode(nil)) {
		t.Error("EnqueueRenderNode should refuse nodes without a worker pool")
	}
}

func TestEnqueueRenderNodeWaitsForAllPredecessors(t *testing.T) {
	ran := make(chan string, 4)
	g, _ := newTestGraph(t, common.DeviceTypeVulkan)
	nodes := addDiamond(t, g, func(name string) RenderPassFunc {
		return func(_, _ *ResourceTable, _ *RenderContext, _ *CommandContext) { ran <- name }
	})
	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}

	if g.EnqueueRenderNode(nodes["D"]) {
		t.Fatal("D enqueued before B and C finished")
	}
	nodes["B"].ExecuteParallel(&CommandContext{})
	if g.EnqueueRenderNode(nodes["D"]) {
		t.Fatal("D enqueued before C finished")
	}
	nodes["C"].ExecuteParallel(&CommandContext{})
	if !g.EnqueueRenderNode(nodes["D"]) {
		t.Fatal("D not enqueued after B and C finished")
	}
	if g.EnqueueRenderNode(nodes["D"]) {
		t.Fatal("D enqueued twice in one frame")
	}

	deadline := time.After(5 * time.Second)
	for seen := 0; seen < 3; seen++ {
		select {
		case name := <-ran:
			if seen == 2 && name != "D" {
				t.Errorf("worker ran %s, want D", name)
			}
		case <-deadline:
			t.Fatal("timed out waiting for D")
		}
	}
}

func TestBeginRenderPassesParallel(t *testing.T) {
	type record struct {
		name string
		buf  *device.CommandBuffer
	}
	var (
		mu      sync.Mutex
		records []record
		wg      sync.WaitGroup
	)
	hook := func(name string, buf *device.CommandBuffer) {
		mu.Lock()
		records = append(records, record{name, buf})
		mu.Unlock()
		wg.Done()
	}
	g, d := newTestGraph(t, common.DeviceTypeVulkan, WithExecutionThreads(4), WithCommandRecordedFunc(hook))

	rng := rand.New(rand.NewSource(11))
	delays := make(map[string]time.Duration)
	var frames sync.Map
	passFor := func(name string) RenderPassFunc {
		delays[name] = time.Duration(rng.Intn(2000)) * time.Microsecond
		return func(_, _ *ResourceTable, ctx *RenderContext, cmd *CommandContext) {
			time.Sleep(delays[name])
			frames.Store(name, ctx.Frame)
			d.DrawFullScreenQuad(cmd.Buffer)
		}
	}
	nodes := addDiamond(t, g, passFor)
	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}

	for frame := uint64(1); frame <= 20; frame++ {
		mu.Lock()
		records = records[:0]
		mu.Unlock()

		wg.Add(len(nodes))
		if err := g.BeginRenderPassesParallel(&RenderContext{Frame: frame}); err != nil {
			t.Fatal(err)
		}
		waitTimeout(t, &wg)

		mu.Lock()
		position := make(map[string]int)
		for i, r := range records {
			if _, dup := position[r.name]; dup {
				t.Fatalf("frame %d: %s recorded twice", frame, r.name)
			}
			position[r.name] = i
			if r.buf == nil || r.buf.Label() != r.name || !r.buf.Ended() || len(r.buf.Commands()) != 1 {
				t.Errorf("frame %d: bad command buffer for %s: %+v", frame, r.name, r.buf)
			}
		}
		mu.Unlock()

		if len(position) != len(nodes) {
			t.Fatalf("frame %d: %d nodes recorded, want %d", frame, len(position), len(nodes))
		}
		for name, n := range nodes {
			for _, prev := range n.PrevNodes() {
				if position[prev.Name()] > position[name] {
					t.Errorf("frame %d: %s recorded before its predecessor %s", frame, name, prev.Name())
				}
			}
			if f, _ := frames.Load(name); f != frame {
				t.Errorf("frame %d: %s saw frame %v", frame, name, f)
			}
		}
	}
}

func TestParallelFrameSurvivesPanickingNode(t *testing.T) {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		names []string
	)
	hook := func(name string, _ *device.CommandBuffer) {
		mu.Lock()
		names = append(names, name)
		mu.Unlock()
		wg.Done()
	}
	g, _ := newTestGraph(t, common.DeviceTypeVulkan, WithCommandRecordedFunc(hook))
	addDiamond(t, g, func(name string) RenderPassFunc {
		return func(_, _ *ResourceTable, _ *RenderContext, _ *CommandContext) {
			if name == "B" {
				panic("broken pass")
			}
		}
	})
	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}

	wg.Add(4)
	if err := g.BeginRenderPassesParallel(&RenderContext{}); err != nil {
		t.Fatal(err)
	}
	waitTimeout(t, &wg)

	mu.Lock()
	defer mu.Unlock()
	if len(names) != 4 || names[len(names)-1] != "D" {
		t.Errorf("recorded %v, want all four nodes ending with D", names)
	}
}

func TestBeginRenderPassesSurvivesPanickingNode(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	var l executionLog
	nodes := addDiamond(t, g, func(name string) RenderPassFunc {
		if name == "B" {
			return func(_, _ *ResourceTable, _ *RenderContext, _ *CommandContext) {
				panic("broken pass")
			}
		}
		return l.pass(name)
	})
	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}

	g.BeginRenderPasses(&RenderContext{})

	if diff := cmp.Diff([]string{"A", "C", "D"}, l.snapshot()); diff != "" {
		t.Errorf("execution order (-want +got):\n%s", diff)
	}
	for name, n := range nodes {
		if !n.FinishedExecution() {
			t.Errorf("%s not finished after a frame with a panicking node", name)
		}
	}
}

func TestCloseAfterParallelFrame(t *testing.T) {
	var wg sync.WaitGroup
	g, _ := newTestGraph(t, common.DeviceTypeVulkan, WithCommandRecordedFunc(func(string, *device.CommandBuffer) { wg.Done() }))
	var l executionLog
	nodes := addDiamond(t, g, l.pass)
	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}

	wg.Add(4)
	if err := g.BeginRenderPassesParallel(&RenderContext{}); err != nil {
		t.Fatal(err)
	}
	waitTimeout(t, &wg)
	g.Close()

	if g.SupportsParallel() {
		t.Error("closed graph still reports parallel support")
	}
	if g.EnqueueRenderNode(nodes["A"]) {
		t.Error("enqueue succeeded on a closed graph")
	}
	if err := g.BeginRenderPassesParallel(&RenderContext{}); !errors.Is(err, ErrNoWorkerPool) {
		t.Errorf("parallel frame after Close returned %v, want ErrNoWorkerPool", err)
	}
}

func TestSetupRenderNodes(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	colorSetup := func(ctx context.Context, d device.Device, output *ResourceTable) error {
		tex, err := d.CreateTexture2D(device.TextureCreateInfo{Label: "Color", Width: 4, Height: 4, Format: common.TextureFormatRGBA8})
		if err != nil {
			return err
		}
		output.Add("Color", tex)
		return nil
	}
	producer := NewRenderNode(nil, WithSetupFunc(colorSetup))
	consumer := NewRenderNode(nil)
	consumer.SetInputResource("Source", "Producer.Color")
	consumer.SetInputResource("Missing", "Producer.Depth")
	if err := g.AddRenderNode("Producer", producer); err != nil {
		t.Fatal(err)
	}
	if err := g.AddRenderNode("Consumer", consumer); err != nil {
		t.Fatal(err)
	}
	producer.ConnectNext(consumer)

	if err := g.SetupRenderNodes(context.Background()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]ResourceKey{"Producer.Color"}, g.Resources().Keys()); diff != "" {
		t.Errorf("published keys mismatch (-want +got):\n%s", diff)
	}
	if consumer.Input().Texture("Source") != producer.Output().Texture("Color") {
		t.Error("consumer input was not bound to the producer output")
	}
	if consumer.Input().Get("Missing") != nil {
		t.Error("an unresolved input should stay empty")
	}
}

func TestSetupRenderNodesFailure(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	boom := errors.New("boom")
	n := NewRenderNode(nil, WithSetupFunc(func(context.Context, device.Device, *ResourceTable) error { return boom }))
	if err := g.AddRenderNode("Broken", n); err != nil {
		t.Fatal(err)
	}

	err := g.SetupRenderNodes(context.Background())
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "Broken") {
		t.Errorf("err = %v, want wrapped boom naming the node", err)
	}
}

func TestResourceTable(t *testing.T) {
	d := device.NewHeadlessDevice(common.DeviceTypeOpenGL, device.WithLogger(logging.Discard()))
	tex, err := d.CreateTexture2D(device.TextureCreateInfo{Label: "t", Width: 2, Height: 2})
	if err != nil {
		t.Fatal(err)
	}

	table := NewResourceTable()
	if table.Get("missing") != nil || table.Texture("missing") != nil {
		t.Error("missing keys should return nil")
	}
	table.Add("b", tex)
	table.Add("a", tex)
	table.Add("a", tex)
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
	if diff := cmp.Diff([]ResourceKey{"a", "b"}, table.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if table.FrameBuffer("a") != nil {
		t.Error("a texture slot should not convert to a framebuffer")
	}
}

func TestToDOT(t *testing.T) {
	g, _ := newTestGraph(t, common.DeviceTypeOpenGL)
	var l executionLog
	addDiamond(t, g, l.pass)
	if err := g.BuildRenderNodePriorities(); err != nil {
		t.Fatal(err)
	}

	dot := ToDOT(g)
	for _, want := range []string{`"A" -> "B";`, `"C" -> "D";`, `priority: 3`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
	if strings.Index(dot, `"B" [`) > strings.Index(dot, `"C" [`) {
		t.Error("nodes should be emitted in priority order")
	}
}
