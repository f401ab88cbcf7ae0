// Package profiler reports frame rate, memory and render graph statistics at a fixed interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/charmbracelet/log"
)

// RenderStats is the render graph portion of a report.
type RenderStats struct {
	Nodes        int
	Batches      int
	Parallel     bool
	LastDuration time.Duration
}

// Report is one interval's statistics.
type Report struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	Render      map[string]RenderStats
}

// Profiler tracks frame rate, memory and render statistics, logging a Report every update interval.
type Profiler struct {
	logger         *log.Logger
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	renderStats    func() map[string]RenderStats
	now            func() time.Time
	last           Report
}

// NewProfiler creates a profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options for profiler configuration
//
// Returns:
//   - *Profiler: the new profiler
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         log.Default(),
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame. When the update interval has elapsed it logs a Report.
//
// Returns:
//   - bool: true if a report was logged this tick
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
	}

	// PauseNs is a circular buffer of the last 256 pauses
	if gcCount := p.memStats.NumGC; gcCount > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		start := p.lastGCCount
		if gcCount-start > 256 {
			start = gcCount - 256
		}
		for i := start; i < gcCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	if p.renderStats != nil {
		r.Render = p.renderStats()
	}

	p.logger.Info("profiler",
		"fps", round2(r.FPS),
		"heap_mb", round2(r.HeapMB),
		"alloc_mb_s", round2(r.AllocRateMB),
		"gc", r.GCCount,
		"gc_last_us", r.LastPauseUs,
		"gc_max_us", r.MaxPauseUs,
		"sys_mb", round2(r.SysMB),
	)
	for name, rs := range r.Render {
		p.logger.Info("profiler render graph",
			"renderer", name,
			"nodes", rs.Nodes,
			"parallel", rs.Parallel,
			"batches", rs.Batches,
			"frame_time", rs.LastDuration,
		)
	}

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.last = r
	return true
}

// LastReport returns the most recently logged report.
func (p *Profiler) LastReport() Report {
	return p.last
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
