package profiler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProfiler_Record(t *testing.T) {
	p := New()
	p.Record("match", 3*time.Millisecond)
	p.Record("match", 1*time.Millisecond)
	p.Record("index", 10*time.Millisecond)

	ops := p.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "index", ops[0].Name)

	match := ops[1]
	assert.Equal(t, int64(2), match.Count)
	assert.Equal(t, 4*time.Millisecond, match.TotalTime)
	assert.Equal(t, 1*time.Millisecond, match.MinTime)
	assert.Equal(t, 3*time.Millisecond, match.MaxTime)
	assert.Equal(t, 2*time.Millisecond, match.Average())
}

func TestProfiler_StartOperation(t *testing.T) {
	p := New()
	now := time.Unix(0, 0)
	p.clock = func() time.Time { return now }

	done := p.StartOperation("detect")
	now = now.Add(250 * time.Millisecond)
	done()

	ops := p.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, 250*time.Millisecond, ops[0].TotalTime)
}

func TestProfiler_Concurrent(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Record("class", time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(16), p.Operations()[0].Count)
}

func TestProfiler_NilSafe(t *testing.T) {
	var p *Profiler
	p.StartOperation("x")()
	p.Record("x", time.Second)
}

func TestProfiler_Report(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := New()
	p.Record("evaluate", time.Second)
	p.Report(zap.New(core))

	assert.Equal(t, 1, logs.FilterMessage("run summary").Len())
	assert.Equal(t, 1, logs.FilterMessage("stage timing").Len())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
