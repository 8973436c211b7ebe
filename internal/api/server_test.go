package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"chaos-disruptor/internal/events"
	"chaos-disruptor/internal/metrics"
	"chaos-disruptor/internal/scenario"
	"chaos-disruptor/pkg/disruptor"
)

var always = disruptor.TriggerFunc(func(disruptor.Context) bool { return true })

func testEngine(t *testing.T, opts ...disruptor.Option) *disruptor.Engine {
	t.Helper()
	groups := disruptor.WithGroups(
		disruptor.Must(disruptor.NewGroup("broken",
			disruptor.Must(disruptor.NewConfig(disruptor.PhaseBefore, always,
				disruptor.Must(disruptor.Raise(func(disruptor.Context) any { return "backend down" })))),
		)),
		disruptor.Must(disruptor.NewGroup("flaky-after",
			disruptor.Must(disruptor.NewConfig(disruptor.PhaseAfter, always, disruptor.RaiseError(errors.New("lost")))),
		)),
		disruptor.Must(disruptor.NewGroup("slow",
			disruptor.Must(disruptor.NewConfig(disruptor.PhaseBefore, disruptor.Must(disruptor.Counting(2)),
				disruptor.Must(disruptor.Delay(20*time.Millisecond)))),
		)),
	)
	e, err := disruptor.New(append([]disruptor.Option{groups}, opts...)...)
	require.NoError(t, err)
	return e
}

func doRequest(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGroups(t *testing.T) {
	s := NewServer("", testEngine(t))

	rec := doRequest(t, s.Handler(), http.MethodGet, "/api/groups")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var groups []GroupInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 3)
	assert.Equal(t, "broken", groups[0].Name)
	assert.Equal(t, "slow", groups[2].Name)
	assert.Equal(t, "counting(2)", groups[2].Configs[0].Trigger)
	assert.Equal(t, []string{"delay(20ms)"}, groups[2].Configs[0].Disruptions)
	assert.Equal(t, "after", groups[1].Configs[0].Phase)
}

func TestGroupsEmptyEngine(t *testing.T) {
	rec := doRequest(t, NewServer("", nil).Handler(), http.MethodGet, "/api/groups")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestEvaluate(t *testing.T) {
	h := NewServer("", testEngine(t)).Handler()

	tests := []struct {
		name      string
		target    string
		status    int
		disrupted bool
		errText   string
	}{
		{"pass on unknown group", "/api/evaluate?group=unknown", http.StatusOK, false, ""},
		{"before raise", "/api/evaluate?group=broken", http.StatusServiceUnavailable, true, "backend down"},
		{"after phase only", "/api/evaluate?group=flaky-after&phase=before", http.StatusOK, false, ""},
		{"after raise", "/api/evaluate?group=flaky-after&phase=AFTER", http.StatusServiceUnavailable, true, "lost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, tt.target)
			require.Equal(t, tt.status, rec.Code)

			var resp EvaluateResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.disrupted, resp.Disrupted)
			assert.Contains(t, resp.Error, tt.errText)
		})
	}
}

func TestEvaluateBadRequests(t *testing.T) {
	h := NewServer("", testEngine(t)).Handler()

	assert.Equal(t, http.StatusBadRequest, doRequest(t, h, http.MethodPost, "/api/evaluate").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, h, http.MethodPost, "/api/evaluate?group=broken&phase=during").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(t, h, http.MethodGet, "/api/evaluate?group=broken").Code)
}

func TestEvaluateKeepsTriggerState(t *testing.T) {
	h := NewServer("", testEngine(t)).Handler()

	var fired int
	for range 4 {
		var resp EvaluateResponse
		rec := doRequest(t, h, http.MethodPost, "/api/evaluate?group=slow")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		if resp.ElapsedMs >= 20 {
			fired++
		}
	}
	assert.Equal(t, 2, fired)
}

func TestStats(t *testing.T) {
	s := NewServer("", nil)

	rec := doRequest(t, s.Handler(), http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.False(t, empty.Running)
	assert.Nil(t, empty.Metrics)

	config := scenario.DefaultConfig()
	config.Name = "api-test"
	config.Duration = 200 * time.Millisecond
	runner := scenario.New(config, nil)
	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	s.SetRunner(runner)

	rec = doRequest(t, s.Handler(), http.MethodGet, "/api/stats")
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "api-test", stats.Scenario)
	require.NotNil(t, stats.Metrics)
	assert.Positive(t, stats.Metrics.TotalRequests)
	assert.Contains(t, stats.Groups, scenario.DefaultGroup)
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.NewCollector()
	s := NewServer("", testEngine(t, disruptor.WithObserver(collector)))
	h := s.Handler()

	assert.Equal(t, http.StatusNotFound, doRequest(t, h, http.MethodGet, "/metrics").Code)

	s.SetCollector(collector)
	doRequest(t, h, http.MethodPost, "/api/evaluate?group=broken")

	rec := doRequest(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `disruptor_evaluations_total{group="broken",phase="before"} 1`)
	assert.Contains(t, body, `disruptor_disruptions_total{group="broken",kind="raise",outcome="failed"} 1`)
}

func TestWebSocketStreamsEvents(t *testing.T) {
	bus := events.NewBus()
	s := NewServer("", testEngine(t, disruptor.WithObserver(events.Observer(bus))))
	s.SetEventBus(bus)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	resp, err := srv.Client().Post(srv.URL+"/api/evaluate?group=broken", "", nil)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first, second events.Event
	require.NoError(t, websocket.JSON.Receive(ws, &first))
	require.NoError(t, websocket.JSON.Receive(ws, &second))
	assert.Equal(t, events.EventTriggered, first.Type)
	assert.Equal(t, events.EventDisruptionFailed, second.Type)
	assert.Equal(t, "broken", second.Group)
	assert.Contains(t, second.Data.Error, "backend down")

	ws.Close()
	assert.Eventually(t, func() bool { return bus.SubscriberCount() == 0 }, time.Second, time.Millisecond)
}

func TestWebSocketWithoutBus(t *testing.T) {
	srv := httptest.NewServer(NewServer("", nil).Handler())
	defer srv.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()

	var msg map[string]string
	require.NoError(t, websocket.JSON.Receive(ws, &msg))
	assert.Equal(t, "error", msg["type"])
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer("", testEngine(t))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/api/groups"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}
