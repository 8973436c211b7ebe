package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaos-disruptor/pkg/disruptor"
)

func TestCollectorObservesEngine(t *testing.T) {
	c := NewCollector()
	always := disruptor.TriggerFunc(func(disruptor.Context) bool { return true })
	engine := disruptor.Must(disruptor.New(
		disruptor.WithGroup(disruptor.Must(disruptor.NewGroup("payments",
			disruptor.Must(disruptor.NewConfig(disruptor.PhaseBefore, always, disruptor.Must(disruptor.Delay(0)))),
			disruptor.Must(disruptor.NewConfig(disruptor.PhaseAfter, always,
				disruptor.Must(disruptor.Raise(func(disruptor.Context) any { return "down" })))),
		))),
		disruptor.WithObserver(c),
	))

	err := engine.Around(context.Background(), "payments", func(context.Context) error { return nil })
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.evaluations.WithLabelValues("payments", "before")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.evaluations.WithLabelValues("payments", "after")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.triggers.WithLabelValues("payments", "after")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.disruptions.WithLabelValues("payments", "delay", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.disruptions.WithLabelValues("payments", "raise", "failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.durations))
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector()
	c.Evaluated(disruptor.NewContext("g"), disruptor.PhaseBefore)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `disruptor_evaluations_total{group="g",phase="before"} 1`)
}
