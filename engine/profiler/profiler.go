package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/lumen/common"
)

// Report is one interval's worth of frame and memory statistics.
type Report struct {
	FPS float64
	// DrawCalls and Instances are per-frame averages over the interval.
	DrawCalls float64
	Instances float64
	// HeapMB is live heap, SysMB the memory obtained from the OS.
	HeapMB float64
	SysMB  float64
	// AllocRateMB is heap churn in MB per second.
	AllocRateMB float64
	NumGC       uint32
	// MaxPause is the longest GC pause since the previous report.
	MaxPause time.Duration
}

// Profiler accumulates per-frame counters and logs a Report once per interval.
// It is meant to be driven from a single render goroutine.
type Profiler struct {
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	frames    int
	drawCalls int
	instances int
	lastTime  time.Time

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a Profiler that reports every second to common.Logger().
//
// Parameters:
//   - opts: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler(opts ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		interval: time.Second,
		now:      time.Now,
		logger:   common.Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick records one rendered frame. When the interval has elapsed the accumulated
// statistics are logged at Info and returned.
//
// Parameters:
//   - drawCalls: draw calls issued this frame
//   - instances: instances drawn this frame
//
// Returns:
//   - Report: the interval report, valid only when ok is true
//   - bool: true if a report was produced this tick
func (p *Profiler) Tick(drawCalls, instances int) (Report, bool) {
	p.frames++
	p.drawCalls += drawCalls
	p.instances += instances

	current := p.now()
	elapsed := current.Sub(p.lastTime)
	if elapsed < p.interval {
		return Report{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		FPS:         float64(p.frames) / elapsed.Seconds(),
		DrawCalls:   float64(p.drawCalls) / float64(p.frames),
		Instances:   float64(p.instances) / float64(p.frames),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		NumGC:       p.memStats.NumGC,
		MaxPause:    p.maxPause(),
	}

	p.logger.Info("frame stats",
		slog.Float64("fps", r.FPS),
		slog.Float64("draw_calls", r.DrawCalls),
		slog.Float64("instances", r.Instances),
		slog.Float64("heap_mb", r.HeapMB),
		slog.Float64("alloc_rate_mb", r.AllocRateMB),
		slog.Uint64("gc", uint64(r.NumGC)),
		slog.Duration("gc_max_pause", r.MaxPause),
		slog.Float64("sys_mb", r.SysMB),
	)

	p.frames, p.drawCalls, p.instances = 0, 0, 0
	p.lastTime = current
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return r, true
}

// maxPause scans the GC pause ring buffer for pauses since the previous report.
func (p *Profiler) maxPause() time.Duration {
	gcCount := p.memStats.NumGC
	start := p.lastGCCount
	// PauseNs only holds the most recent 256 pauses.
	if gcCount-start > 256 {
		start = gcCount - 256
	}
	var longest uint64
	for i := start; i < gcCount; i++ {
		longest = max(longest, p.memStats.PauseNs[i%256])
	}
	return time.Duration(longest)
}
