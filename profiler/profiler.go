// Package profiler - stage timing for evaluation runs.
package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TimeTracker tracks timing statistics of one named operation.
type TimeTracker struct {
	Name      string        `json:"name"`
	Count     int64         `json:"count"`
	TotalTime time.Duration `json:"total_time"`
	MinTime   time.Duration `json:"min_time"`
	MaxTime   time.Duration `json:"max_time"`
}

// Average returns the mean duration of the operation.
func (t TimeTracker) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.TotalTime / time.Duration(t.Count)
}

// Profiler records how long each stage of a run takes: annotation indexing,
// per-image detection, per-class matching and so on.
//
// It is safe for concurrent use; per-class evaluation workers share one.
type Profiler struct {
	mu             sync.RWMutex
	startTime      time.Time
	operationTimes map[string]*TimeTracker
	clock          func() time.Time
}

// New creates a profiler whose uptime starts now.
func New() *Profiler {
	return &Profiler{
		startTime:      time.Now(),
		operationTimes: make(map[string]*TimeTracker),
		clock:          time.Now,
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
//
// @example
// done := p.StartOperation("match")
// defer done()
func (p *Profiler) StartOperation(name string) func() {
	if p == nil {
		return func() {}
	}
	start := p.clock()
	return func() {
		p.Record(name, p.clock().Sub(start))
	}
}

// Record adds one completed run of an operation.
func (p *Profiler) Record(name string, duration time.Duration) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			Name:    name,
			MinTime: duration,
			MaxTime: duration,
		}
		p.operationTimes[name] = tracker
	}

	tracker.TotalTime += duration
	tracker.Count++

	if duration < tracker.MinTime {
		tracker.MinTime = duration
	}
	if duration > tracker.MaxTime {
		tracker.MaxTime = duration
	}
}

// Operations returns a snapshot of every tracked operation sorted by name.
func (p *Profiler) Operations() []TimeTracker {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]TimeTracker, 0, len(p.operationTimes))
	for _, t := range p.operationTimes {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Report logs one line per operation plus memory usage.
func (p *Profiler) Report(log *zap.Logger) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	log.Info("run summary",
		zap.Duration("uptime", time.Since(p.startTime)),
		zap.String("heap_alloc", formatBytes(mem.HeapAlloc)),
		zap.String("total_alloc", formatBytes(mem.TotalAlloc)),
		zap.Uint32("gc_cycles", mem.NumGC),
	)
	for _, op := range p.Operations() {
		log.Info("stage timing",
			zap.String("stage", op.Name),
			zap.Int64("count", op.Count),
			zap.Duration("total", op.TotalTime),
			zap.Duration("avg", op.Average()),
			zap.Duration("min", op.MinTime),
			zap.Duration("max", op.MaxTime),
		)
	}
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
