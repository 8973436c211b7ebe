package disruptor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Disruption は注入する障害。設定が発火するたびに呼び出し元のゴルーチンで実行される。
// 実装は並行呼び出しに対して安全でなければならない
type Disruption interface {
	// Disrupt は障害を適用する。エラーを返すと評価はそこで終わる
	Disrupt(ctx context.Context, dc Context) error

	// Kind は障害の種類名（"delay" など）
	Kind() string
}

// -----------------------------------------------------------------------------
// Delay
// -----------------------------------------------------------------------------

// DelayDisruption は呼び出し元を一定時間停止させる
type DelayDisruption struct {
	duration time.Duration
}

// Delay は d だけ待機する障害を返す。d は負であってはならない
func Delay(d time.Duration) (*DelayDisruption, error) {
	if d < 0 {
		return nil, invalidf("delay must not be negative, got %v", d)
	}
	return &DelayDisruption{duration: d}, nil
}

// Duration は遅延時間を返す
func (d *DelayDisruption) Duration() time.Duration {
	return d.duration
}

// Disrupt は d の間待機する。ctx がキャンセルされると待機を打ち切り
// *DisruptionError を返す
func (d *DelayDisruption) Disrupt(ctx context.Context, dc Context) error {
	if err := ctx.Err(); err != nil {
		return &DisruptionError{Group: dc.Group(), Cause: err}
	}

	logger().Debug("Starting delay",
		slog.String("group", dc.Group()),
		slog.Duration("duration", d.duration))

	timer := time.NewTimer(d.duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return &DisruptionError{Group: dc.Group(), Cause: ctx.Err()}
	case <-timer.C:
		return nil
	}
}

// Kind は "delay" を返す
func (d *DelayDisruption) Kind() string { return "delay" }

func (d *DelayDisruption) String() string {
	return fmt.Sprintf("delay(%v)", d.duration)
}

// -----------------------------------------------------------------------------
// Raise
// -----------------------------------------------------------------------------

// RaiseDisruption はコンテキストから作った値で呼び出しを失敗させる
type RaiseDisruption struct {
	failure func(Context) any
}

// Raise は fn が返す値で失敗する障害を返す。
//
// error はそのまま返す。それ以外の値は nil も含めて *DisruptionError で包む
func Raise(fn func(dc Context) any) (*RaiseDisruption, error) {
	if fn == nil {
		return nil, invalidf("raise requires a failure function")
	}
	return &RaiseDisruption{failure: fn}, nil
}

// RaiseError は常に err で失敗する障害を返す
func RaiseError(err error) *RaiseDisruption {
	return &RaiseDisruption{failure: func(Context) any { return err }}
}

// Disrupt は失敗値を計算して返す
func (r *RaiseDisruption) Disrupt(_ context.Context, dc Context) error {
	payload := r.failure(dc)
	if err, ok := payload.(error); ok {
		return err
	}
	return &DisruptionError{Group: dc.Group(), Cause: payload}
}

// Kind は "raise" を返す
func (r *RaiseDisruption) Kind() string { return "raise" }

func (r *RaiseDisruption) String() string { return "raise" }
