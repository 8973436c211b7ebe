package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chaos-disruptor/pkg/disruptor"
)

func TestNewMetrics(t *testing.T) {
	m := New()
	assert.Zero(t, m.TotalRequests())
	assert.Zero(t, m.AverageLatency())
	assert.Zero(t, m.P99Latency())
	assert.Zero(t, m.ErrorRate())
}

func TestMetricsRecordClassifies(t *testing.T) {
	m := New()

	m.Record(10*time.Millisecond, nil)
	m.Record(20*time.Millisecond, &disruptor.DisruptionError{Group: "g", Cause: "down"})
	m.Record(30*time.Millisecond, errors.New("real failure"))
	m.Record(40*time.Millisecond, nil)

	assert.Equal(t, uint64(4), m.TotalRequests())
	assert.Equal(t, uint64(2), m.SuccessRequests())
	assert.Equal(t, uint64(1), m.DisruptedRequests())
	assert.Equal(t, uint64(1), m.FailedRequests())
	assert.InDelta(t, 0.5, m.ErrorRate(), 0.0001)
	assert.Equal(t, 25*time.Millisecond, m.AverageLatency())
}

func TestMetricsP99(t *testing.T) {
	m := New()
	for i := 1; i <= 100; i++ {
		m.RecordSuccess(time.Duration(i) * time.Millisecond)
	}
	assert.Equal(t, 100*time.Millisecond, m.P99Latency())
}

func TestMetricsP99IgnoresFailures(t *testing.T) {
	m := New()
	m.RecordSuccess(time.Millisecond)
	m.RecordDisrupted(time.Hour)
	assert.Equal(t, time.Millisecond, m.P99Latency())
}

func TestMetricsSampleLimit(t *testing.T) {
	m := NewWithConfig(Config{MaxLatencySamples: 10})
	for range 50 {
		m.RecordSuccess(time.Millisecond)
	}
	assert.Len(t, m.latencies, 10)
	assert.Equal(t, uint64(50), m.TotalRequests())

	zero := NewWithConfig(Config{})
	assert.Equal(t, defaultMaxLatencySamples, zero.maxLatencySamples)
}

func TestMetricsReset(t *testing.T) {
	m := New()
	m.RecordSuccess(time.Millisecond)
	m.Reset()

	assert.Zero(t, m.P99Latency())
	assert.Equal(t, uint64(1), m.TotalRequests(), "totals survive a window reset")
}

func TestMetricsConcurrent(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.RecordSuccess(time.Microsecond)
				m.RecordDisrupted(time.Microsecond)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, uint64(2000), snap.TotalRequests)
	assert.Equal(t, uint64(1000), snap.SuccessRequests)
	assert.Equal(t, uint64(1000), snap.DisruptedRequests)
}
