package disruptor

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Trigger は設定の障害を発生させるかどうかを判定する。
// 実装は並行呼び出しに対して安全で、パニックしてはならない
type Trigger interface {
	ShouldTrigger(dc Context) bool
}

// TriggerFunc は関数を Trigger として使うためのアダプタ
type TriggerFunc func(dc Context) bool

// ShouldTrigger は f を呼び出す
func (f TriggerFunc) ShouldTrigger(dc Context) bool {
	return f(dc)
}

// Describe はトリガーの短い説明を返す。fmt.Stringer でなければ "custom"
func Describe(t Trigger) string {
	if s, ok := t.(fmt.Stringer); ok {
		return s.String()
	}
	return "custom"
}

// -----------------------------------------------------------------------------
// Never
// -----------------------------------------------------------------------------

type neverTrigger struct{}

// Never は決して発火しないトリガーを返す
func Never() Trigger {
	return neverTrigger{}
}

func (neverTrigger) ShouldTrigger(Context) bool { return false }

func (neverTrigger) String() string { return "never" }

// -----------------------------------------------------------------------------
// Random
// -----------------------------------------------------------------------------

// RandomTrigger は呼び出しごとに独立した確率で発火する
type RandomTrigger struct {
	chance float64
}

// Random は確率 chance（0〜1）で発火するトリガーを返す
func Random(chance float64) (*RandomTrigger, error) {
	if math.IsNaN(chance) || chance < 0 || chance > 1 {
		return nil, invalidf("random chance %v outside [0, 1]", chance)
	}
	return &RandomTrigger{chance: chance}, nil
}

// ShouldTrigger は Trigger を実装する
func (t *RandomTrigger) ShouldTrigger(Context) bool {
	// rand.Float64 は [0, 1) なので 0 は発火せず 1 は必ず発火する
	return rand.Float64() < t.chance
}

func (t *RandomTrigger) String() string {
	return fmt.Sprintf("random(%g)", t.chance)
}

// -----------------------------------------------------------------------------
// Counting
// -----------------------------------------------------------------------------

// CountingTrigger は target 回目の呼び出しごとに発火する
type CountingTrigger struct {
	target int

	mu    sync.Mutex
	count int
}

// Counting は呼び出し回数が target に達するたびに発火し、カウンタを 0 に戻すトリガーを返す
func Counting(target int) (*CountingTrigger, error) {
	if target <= 0 {
		return nil, invalidf("counting target must be positive, got %d", target)
	}
	return &CountingTrigger{target: target}, nil
}

// ShouldTrigger は Trigger を実装する
func (t *CountingTrigger) ShouldTrigger(Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count++
	if t.count == t.target {
		t.count = 0
		return true
	}
	return false
}

func (t *CountingTrigger) String() string {
	return fmt.Sprintf("counting(%d)", t.target)
}

// -----------------------------------------------------------------------------
// Lasting
// -----------------------------------------------------------------------------

// LastingTrigger は内側のトリガーが発火してから一定時間、発火し続ける。
// 継続中は内側のトリガーを呼ばない
type LastingTrigger struct {
	duration time.Duration
	inner    Trigger
	now      func() time.Time

	mu          sync.Mutex
	activeUntil time.Time
}

// Lasting は inner の1回の発火を duration の間継続させる
func Lasting(duration time.Duration, inner Trigger) (*LastingTrigger, error) {
	if duration < 0 {
		return nil, invalidf("lasting duration must not be negative, got %v", duration)
	}
	if inner == nil {
		return nil, invalidf("lasting trigger requires an inner trigger")
	}
	return &LastingTrigger{
		duration: duration,
		inner:    inner,
		now:      time.Now,
	}, nil
}

// ShouldTrigger は Trigger を実装する
func (t *LastingTrigger) ShouldTrigger(dc Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Before(t.activeUntil) {
		return true
	}
	if !t.inner.ShouldTrigger(dc) {
		return false
	}

	t.activeUntil = now.Add(t.duration)
	logger().Info("Lasting disruption started",
		slog.String("group", dc.Group()),
		slog.String("until", t.activeUntil.Format(time.RFC3339Nano)))
	return true
}

func (t *LastingTrigger) String() string {
	return fmt.Sprintf("lasting(%v, %s)", t.duration, Describe(t.inner))
}

// -----------------------------------------------------------------------------
// Limiting
// -----------------------------------------------------------------------------

// LimitingTrigger は期間内に内側のトリガーが発火できる回数を制限する。
// 期間は満了後の最初の呼び出しで更新される
type LimitingTrigger struct {
	limit  int
	period time.Duration
	inner  Trigger
	now    func() time.Time

	mu        sync.Mutex
	windowEnd time.Time
	count     int
}

// Limiting は inner の発火を period ごとに最大 limit 回に制限する。
// limit が 0 以下ならすべて抑止する
func Limiting(limit int, period time.Duration, inner Trigger) (*LimitingTrigger, error) {
	if period < 0 {
		return nil, invalidf("limiting period must not be negative, got %v", period)
	}
	if inner == nil {
		return nil, invalidf("limiting trigger requires an inner trigger")
	}
	return &LimitingTrigger{
		limit:  limit,
		period: period,
		inner:  inner,
		now:    time.Now,
	}, nil
}

// ShouldTrigger は Trigger を実装する
func (t *LimitingTrigger) ShouldTrigger(dc Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.After(t.windowEnd) {
		t.windowEnd = now.Add(t.period)
		t.count = 0
	}
	if t.count >= t.limit {
		return false
	}
	if !t.inner.ShouldTrigger(dc) {
		return false
	}

	t.count++
	if t.count >= t.limit {
		logger().Info("Disruption limit reached",
			slog.String("group", dc.Group()),
			slog.Int("limit", t.limit),
			slog.String("reset_at", t.windowEnd.Format(time.RFC3339Nano)))
	}
	return true
}

func (t *LimitingTrigger) String() string {
	return fmt.Sprintf("limiting(%d/%v, %s)", t.limit, t.period, Describe(t.inner))
}
