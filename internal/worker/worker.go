package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"chaos-disruptor/internal/logger"
)

// Job はワーカーが実行するジョブを表す。ctx はプールの停止時にキャンセルされる
type Job func(ctx context.Context)

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	NumWorkers  int // ワーカー数（0でCPU数）
	QueueFactor int // キューサイズ = NumWorkers * QueueFactor
}

// DefaultPoolConfig はデフォルト設定を返す
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:  0,   // CPU数
		QueueFactor: 100, // デフォルト倍率
	}
}

// Pool はゴルーチンのプールを管理する
type Pool struct {
	numWorkers int
	jobs       chan Job
	wg         sync.WaitGroup

	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	completed atomic.Uint64
	rejected  atomic.Uint64
}

// NewPool は新しいワーカープールを作成する
// numWorkers が 0 以下の場合は CPU 数を使用
func NewPool(numWorkers int) *Pool {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig は設定を指定してワーカープールを作成する
func NewPoolWithConfig(config PoolConfig) *Pool {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	queueFactor := config.QueueFactor
	if queueFactor <= 0 {
		queueFactor = 100
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numWorkers*queueFactor),
	}
}

// Start はワーカープールを起動する。起動済みなら何もしない
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	for range p.numWorkers {
		p.wg.Add(1)
		go p.worker(p.ctx)
	}

	logger.Debug("", "WorkerPool started with %d workers", p.numWorkers)
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			job(ctx)
			p.completed.Add(1)
		}
	}
}

// running は受付中ならプールのコンテキストを返す
func (p *Pool) running() (context.Context, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started || p.ctx.Err() != nil {
		return nil, false
	}
	return p.ctx, true
}

// Submit はジョブをプールに送信する。キューが満杯なら待たずに false を返す
func (p *Pool) Submit(job Job) bool {
	if _, ok := p.running(); !ok {
		p.rejected.Add(1)
		return false
	}

	select {
	case p.jobs <- job:
		return true
	default:
		p.rejected.Add(1)
		return false
	}
}

// SubmitWait はジョブを送信し、キューに空きがなければブロックする
func (p *Pool) SubmitWait(job Job) bool {
	ctx, ok := p.running()
	if !ok {
		p.rejected.Add(1)
		return false
	}

	select {
	case <-ctx.Done():
		p.rejected.Add(1)
		return false
	case p.jobs <- job:
		return true
	}
}

// Stop はワーカープールを停止し、実行中のジョブの終了を待つ
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()

	dropped := 0
	for len(p.jobs) > 0 {
		<-p.jobs
		dropped++
	}
	if dropped > 0 {
		p.rejected.Add(uint64(dropped))
	}

	logger.Debug("", "WorkerPool stopped (completed=%d, dropped=%d)", p.completed.Load(), dropped)
}

// NumWorkers はワーカー数を返す
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// QueueSize は現在のキューサイズを返す
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// Completed は完了したジョブ数を返す
func (p *Pool) Completed() uint64 {
	return p.completed.Load()
}

// Rejected は受け付けられなかった、または破棄されたジョブ数を返す
func (p *Pool) Rejected() uint64 {
	return p.rejected.Load()
}
