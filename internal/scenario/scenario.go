package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"chaos-disruptor/internal/logger"
	"chaos-disruptor/internal/metrics"
	"chaos-disruptor/internal/store"
	"chaos-disruptor/internal/worker"
	"chaos-disruptor/pkg/disruptor"
)

// DefaultGroup は対象グループが指定されずエンジンも空の場合に使うグループ名
const DefaultGroup = "kv"

// Config はシナリオの設定
type Config struct {
	Name        string        // シナリオ名
	Description string        // 説明
	Duration    time.Duration // 実行時間

	Workers    int      // 同時実行数
	Rate       float64  // 毎秒の操作数（0で無制限）
	WriteRatio float64  // 書き込み比率
	KeySpace   int      // 使用するキー数
	Groups     []string // 操作を割り当てるグループ（空ならエンジンの全グループ）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Name:        "default",
		Description: "Default scenario",
		Duration:    10 * time.Second,
		Workers:     10,
		Rate:        500,
		WriteRatio:  0.5,
		KeySpace:    100,
	}
}

// GroupResult はグループ単位の集計
type GroupResult struct {
	Requests  uint64 `json:"requests"`
	Success   uint64 `json:"success"`
	Disrupted uint64 `json:"disrupted"`
	Failed    uint64 `json:"failed"`
}

// Result はシナリオ実行結果
type Result struct {
	ScenarioName string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration

	TotalRequests     uint64
	SuccessRequests   uint64
	DisruptedRequests uint64
	FailedRequests    uint64
	AbortedRequests   uint64
	ErrorRate         float64
	AvgLatency        time.Duration
	P99Latency        time.Duration

	Groups map[string]GroupResult
}

type groupCounters struct {
	requests  atomic.Uint64
	success   atomic.Uint64
	disrupted atomic.Uint64
	failed    atomic.Uint64
}

func (c *groupCounters) result() GroupResult {
	return GroupResult{
		Requests:  c.requests.Load(),
		Success:   c.success.Load(),
		Disrupted: c.disrupted.Load(),
		Failed:    c.failed.Load(),
	}
}

// Runner はシナリオ実行エンジン
type Runner struct {
	config Config
	engine *disruptor.Engine

	mu      sync.RWMutex
	running bool
	metrics *metrics.Metrics
	groups  map[string]*groupCounters
	aborted atomic.Uint64
}

// New は新しい Runner を作成する。engine が nil なら障害注入なしで実行する
func New(config Config, engine *disruptor.Engine) *Runner {
	if engine == nil {
		engine = disruptor.Empty()
	}
	return &Runner{
		config: config,
		engine: engine,
	}
}

// Config は設定を返す
func (r *Runner) Config() Config {
	return r.config
}

// targetGroups は操作を割り当てるグループ名を返す
func (r *Runner) targetGroups() []string {
	if len(r.config.Groups) > 0 {
		return slices.Clone(r.config.Groups)
	}
	if names := r.engine.Groups(); len(names) > 0 {
		return names
	}
	return []string{DefaultGroup}
}

// Run はシナリオを実行する
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.config.Duration <= 0 {
		return nil, fmt.Errorf("scenario duration must be positive, got %v", r.config.Duration)
	}

	// カウンタは公開前に作り切る。GroupStats が実行中に読むため
	groups := r.targetGroups()
	counters := make(map[string]*groupCounters, len(groups))
	for _, g := range groups {
		counters[g] = &groupCounters{}
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, fmt.Errorf("scenario is already running")
	}
	r.running = true
	r.metrics = metrics.New()
	r.groups = counters
	r.aborted.Store(0)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	for _, g := range groups {
		if _, ok := r.engine.Group(g); !ok {
			logger.Warn(g, "Group is not configured; operations pass through undisrupted")
		}
	}

	logger.Info("", "=== Scenario '%s' started ===", r.config.Name)
	logger.Info("", "Description: %s", r.config.Description)

	result := &Result{
		ScenarioName: r.config.Name,
		StartTime:    time.Now(),
	}

	kv, err := r.seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.config.Duration)
	defer cancel()

	r.drive(runCtx, kv, groups)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	r.collectResults(result)

	logger.Info("", "=== Scenario '%s' completed ===", r.config.Name)

	return result, nil
}

// seed はストアを作成し初期キーを投入する
func (r *Runner) seed(ctx context.Context) (*store.Store, error) {
	kv := store.New(r.config.Name)
	for i := range r.keySpace() {
		if err := kv.Set(ctx, keyName(i), []byte("seed")); err != nil {
			return nil, err
		}
	}
	return kv, nil
}

func (r *Runner) keySpace() int {
	if r.config.KeySpace <= 0 {
		return 1
	}
	return r.config.KeySpace
}

func keyName(i int) string {
	return fmt.Sprintf("key-%04d", i)
}

// drive はシナリオ終了まで操作を発行する
func (r *Runner) drive(ctx context.Context, kv *store.Store, groups []string) {
	guarded := make([]*store.Guarded, len(groups))
	for i, g := range groups {
		guarded[i] = store.Guard(kv, r.engine, g)
	}

	limit := rate.Inf
	if r.config.Rate > 0 {
		limit = rate.Limit(r.config.Rate)
	}
	workers := r.config.Workers
	if workers <= 0 {
		workers = 1
	}
	limiter := rate.NewLimiter(limit, workers)

	pool := worker.NewPool(workers)
	pool.Start(ctx)
	defer pool.Stop()

	for seq := 0; ; seq++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		target := guarded[seq%len(guarded)]
		if !pool.SubmitWait(func(jobCtx context.Context) { r.execute(jobCtx, target) }) {
			break
		}
	}

	logger.Info("", "Scenario duration completed, stopping workers...")
}

// execute は1回の保護された操作を実行し結果を記録する
func (r *Runner) execute(ctx context.Context, target *store.Guarded) {
	key := keyName(rand.IntN(r.keySpace()))

	start := time.Now()
	var err error
	if rand.Float64() < r.config.WriteRatio {
		err = target.Set(ctx, key, []byte(start.Format(time.RFC3339Nano)))
	} else {
		_, err = target.Get(ctx, key)
	}
	latency := time.Since(start)

	// 終了時のキャンセルで中断された操作は集計しない
	if err != nil && ctx.Err() != nil && isCancellation(err) {
		r.aborted.Add(1)
		return
	}

	r.metrics.Record(latency, err)

	c := r.groups[target.Group()]
	c.requests.Add(1)
	switch {
	case err == nil:
		c.success.Add(1)
	case disruptor.IsDisruption(err):
		c.disrupted.Add(1)
	default:
		c.failed.Add(1)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// collectResults は結果を収集する
func (r *Runner) collectResults(result *Result) {
	snapshot := r.metrics.Snapshot()
	result.TotalRequests = snapshot.TotalRequests
	result.SuccessRequests = snapshot.SuccessRequests
	result.DisruptedRequests = snapshot.DisruptedRequests
	result.FailedRequests = snapshot.FailedRequests
	result.AbortedRequests = r.aborted.Load()
	result.ErrorRate = snapshot.ErrorRate
	result.AvgLatency = snapshot.AverageLatency
	result.P99Latency = snapshot.P99Latency

	result.Groups = make(map[string]GroupResult, len(r.groups))
	for name, c := range r.groups {
		result.Groups[name] = c.result()
	}
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, `
================================================================================
                         SCENARIO REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Start Time:     %s
  End Time:       %s
  Duration:       %v

TRAFFIC METRICS
---------------
  Total Requests:   %d
  Success:          %d
  Disrupted:        %d
  Failed:           %d
  Aborted:          %d
  Error Rate:       %.2f%%
  Avg Latency:      %v
  P99 Latency:      %v

GROUPS
------
`,
		r.ScenarioName,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.TotalRequests,
		r.SuccessRequests,
		r.DisruptedRequests,
		r.FailedRequests,
		r.AbortedRequests,
		r.ErrorRate*100,
		r.AvgLatency.Round(time.Microsecond),
		r.P99Latency.Round(time.Microsecond),
	)

	names := make([]string, 0, len(r.Groups))
	for name := range r.Groups {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		g := r.Groups[name]
		fmt.Fprintf(&b, "  %-20s requests=%d success=%d disrupted=%d failed=%d\n",
			name+":", g.Requests, g.Success, g.Disrupted, g.Failed)
	}

	b.WriteString("\n================================================================================")
	return b.String()
}

// IsRunning は実行中かどうかを返す
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Metrics は直近（または実行中）の操作メトリクスを返す
func (r *Runner) Metrics() *metrics.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.metrics == nil {
		return nil
	}
	snapshot := r.metrics.Snapshot()
	return &snapshot
}

// GroupStats は直近（または実行中）のグループ別集計を返す
func (r *Runner) GroupStats() map[string]GroupResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]GroupResult, len(r.groups))
	for name, c := range r.groups {
		out[name] = c.result()
	}
	return out
}
