package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"chaos-disruptor/internal/events"
	"chaos-disruptor/internal/logger"
	"chaos-disruptor/internal/metrics"
	"chaos-disruptor/internal/scenario"
	"chaos-disruptor/pkg/disruptor"
)

const shutdownTimeout = 5 * time.Second

// Server はAPIサーバー
type Server struct {
	addr   string
	engine *disruptor.Engine

	mu        sync.RWMutex
	bus       *events.Bus
	collector *metrics.Collector
	runner    *scenario.Runner
	wsClients int

	done     chan struct{}
	doneOnce sync.Once
	server   *http.Server
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(addr string, engine *disruptor.Engine) *Server {
	if engine == nil {
		engine = disruptor.Empty()
	}
	return &Server{
		addr:   addr,
		engine: engine,
		done:   make(chan struct{}),
	}
}

// SetEventBus は /ws で配信するイベントバスを設定する
func (s *Server) SetEventBus(bus *events.Bus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus = bus
}

// SetCollector は /metrics で公開するコレクタを設定する
func (s *Server) SetCollector(c *metrics.Collector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collector = c
}

// SetRunner は /api/stats で報告するシナリオを設定する
func (s *Server) SetRunner(r *scenario.Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runner = r
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/groups", s.handleGroups)
	mux.HandleFunc("POST /api/evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return mux
}

// Start はサーバーを開始し、ctx がキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve は ln で待ち受ける
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("", "API Server starting on http://%s", ln.Addr())

	go func() {
		<-ctx.Done()
		s.doneOnce.Do(func() { close(s.done) })
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("", "API Server shutdown: %v", err)
		}
	}()

	if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("", "API Server stopped")
	return nil
}

// ConfigInfo は設定の説明
type ConfigInfo struct {
	Phase       string   `json:"phase"`
	Trigger     string   `json:"trigger"`
	Disruptions []string `json:"disruptions"`
}

// GroupInfo はグループの説明
type GroupInfo struct {
	Name    string       `json:"name"`
	Configs []ConfigInfo `json:"configs"`
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	groups := make([]GroupInfo, 0)
	for _, name := range s.engine.Groups() {
		g, _ := s.engine.Group(name)
		info := GroupInfo{Name: name, Configs: make([]ConfigInfo, 0)}
		for _, cfg := range g.Configs() {
			ci := ConfigInfo{
				Phase:       cfg.Phase().String(),
				Trigger:     disruptor.Describe(cfg.Trigger()),
				Disruptions: make([]string, 0),
			}
			for _, d := range cfg.Disruptions() {
				ci.Disruptions = append(ci.Disruptions, describeDisruption(d))
			}
			info.Configs = append(info.Configs, ci)
		}
		groups = append(groups, info)
	}

	s.writeJSON(w, http.StatusOK, groups)
}

func describeDisruption(d disruptor.Disruption) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return d.Kind()
}

// EvaluateResponse は評価結果
type EvaluateResponse struct {
	Group     string `json:"group"`
	Phase     string `json:"phase"`
	Disrupted bool   `json:"disrupted"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// handleEvaluate はリモートのチェックポイントとして1フェーズを評価する。
// 遅延はこのリクエスト内で発生し、失敗は 503 で返る
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	if group == "" {
		s.writeError(w, http.StatusBadRequest, "group is required")
		return
	}

	phase := disruptor.PhaseBefore
	if p := r.URL.Query().Get("phase"); p != "" {
		parsed, err := disruptor.ParsePhase(p)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		phase = parsed
	}

	start := time.Now()
	err := s.engine.Evaluate(r.Context(), group, phase)
	resp := EvaluateResponse{
		Group:     group,
		Phase:     phase.String(),
		ElapsedMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		resp.Disrupted = true
		resp.Error = err.Error()
		logger.Debug(group, "Remote evaluation disrupted: %v", err)
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// StatsResponse は統計レスポンス
type StatsResponse struct {
	Running   bool                            `json:"running"`
	Scenario  string                          `json:"scenario,omitempty"`
	Metrics   *metrics.Snapshot               `json:"metrics,omitempty"`
	Groups    map[string]scenario.GroupResult `json:"groups,omitempty"`
	WSClients int                             `json:"ws_clients"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	runner := s.runner
	resp := StatsResponse{WSClients: s.wsClients}
	s.mu.RUnlock()

	if runner != nil {
		resp.Running = runner.IsRunning()
		resp.Scenario = runner.Config().Name
		resp.Metrics = runner.Metrics()
		resp.Groups = runner.GroupStats()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	collector := s.collector
	s.mu.RUnlock()

	if collector == nil {
		s.writeError(w, http.StatusNotFound, "metrics are not enabled")
		return
	}
	collector.Handler().ServeHTTP(w, r)
}

// handleWebSocket はイベントバスの内容をクライアントへ流す
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	defer func() { _ = ws.Close() }()

	s.mu.Lock()
	bus := s.bus
	if bus == nil {
		s.mu.Unlock()
		_ = websocket.JSON.Send(ws, map[string]string{"type": "error", "error": "event stream is not enabled"})
		return
	}
	s.wsClients++
	s.mu.Unlock()

	sub := bus.Subscribe()
	defer func() {
		bus.Unsubscribe(sub)
		s.mu.Lock()
		s.wsClients--
		s.mu.Unlock()
	}()

	// クライアントからの切断を検知する
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg string
			if err := websocket.Message.Receive(ws, &msg); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-s.done:
			return
		case <-closed:
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(ws, e); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "Failed to encode JSON: %v", err)
	}
}
