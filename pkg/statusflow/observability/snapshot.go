package observability

import (
	"runtime"
	"time"
)

// ResourceSnapshot captures process resource state at one instant.
type ResourceSnapshot struct {
	CapturedAt     time.Time `json:"captured_at"`
	HeapAllocBytes uint64    `json:"heap_alloc_bytes"`
	HeapSysBytes   uint64    `json:"heap_sys_bytes"`
	NumGoroutine   int       `json:"num_goroutine"`
	NumGC          uint32    `json:"num_gc"`
}

// PerformanceSnapshot captures process performance counters at one
// instant.
type PerformanceSnapshot struct {
	CapturedAt   time.Time     `json:"captured_at"`
	Uptime       time.Duration `json:"uptime"`
	GCPauseTotal time.Duration `json:"gc_pause_total"`
	NumCPU       int           `json:"num_cpu"`
}

// SnapshotProvider supplies resource and performance snapshots for
// attachment to transition contexts at error time.
type SnapshotProvider interface {
	ResourceSnapshot() ResourceSnapshot
	PerformanceSnapshot() PerformanceSnapshot
}

// RuntimeSnapshots is a SnapshotProvider backed by the Go runtime.
type RuntimeSnapshots struct {
	start time.Time
}

// NewRuntimeSnapshots creates a runtime-backed snapshot provider.
func NewRuntimeSnapshots() *RuntimeSnapshots {
	return &RuntimeSnapshots{start: time.Now()}
}

// ResourceSnapshot implements SnapshotProvider.
func (r *RuntimeSnapshots) ResourceSnapshot() ResourceSnapshot {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return ResourceSnapshot{
		CapturedAt:     time.Now(),
		HeapAllocBytes: stats.HeapAlloc,
		HeapSysBytes:   stats.HeapSys,
		NumGoroutine:   runtime.NumGoroutine(),
		NumGC:          stats.NumGC,
	}
}

// PerformanceSnapshot implements SnapshotProvider.
func (r *RuntimeSnapshots) PerformanceSnapshot() PerformanceSnapshot {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return PerformanceSnapshot{
		CapturedAt:   time.Now(),
		Uptime:       time.Since(r.start),
		GCPauseTotal: time.Duration(stats.PauseTotalNs),
		NumCPU:       runtime.NumCPU(),
	}
}
