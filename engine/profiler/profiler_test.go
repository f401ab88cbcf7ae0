package profiler

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestProfilerReportsEveryInterval(t *testing.T) {
	var out bytes.Buffer
	logger := log.New(&out)

	clock := time.Unix(0, 0)
	p := NewProfiler(
		WithLogger(logger),
		WithClock(func() time.Time { return clock }),
		WithRenderStats(func() map[string]RenderStats {
			return map[string]RenderStats{"standard": {Nodes: 9, Batches: 3, Parallel: true}}
		}),
	)

	for i := 0; i < 59; i++ {
		clock = clock.Add(10 * time.Millisecond)
		if p.Tick() {
			t.Fatalf("reported after %d frames, before the interval elapsed", i+1)
		}
	}
	clock = clock.Add(410 * time.Millisecond)
	if !p.Tick() {
		t.Fatal("no report once the interval elapsed")
	}

	r := p.LastReport()
	if r.FPS != 60 {
		t.Errorf("FPS = %v, want 60", r.FPS)
	}
	if r.Render["standard"].Nodes != 9 {
		t.Errorf("render stats = %+v", r.Render)
	}
	if !strings.Contains(out.String(), "fps=60") || !strings.Contains(out.String(), "renderer=standard") {
		t.Errorf("log output missing fields:\n%s", out.String())
	}
}
