package disruptor

import "time"

// Observer は Engine からの通知を受け取る。評価中のゴルーチンで同期的に呼ばれるため、
// 並行呼び出しに対して安全でなければならない。評価結果は変えられない
type Observer interface {
	// Evaluated は登録済みグループの評価ごとに1回呼ばれる
	Evaluated(dc Context, phase Phase)

	// Triggered は設定のトリガーが発火したときに呼ばれる
	Triggered(dc Context, phase Phase)

	// DisruptionApplied は各障害の実行後に呼ばれる。err は障害が返したエラー
	DisruptionApplied(dc Context, phase Phase, d Disruption, elapsed time.Duration, err error)
}

// NopObserver はすべての通知を無視する。一部だけ実装したいときに埋め込む
type NopObserver struct{}

func (NopObserver) Evaluated(Context, Phase) {}
func (NopObserver) Triggered(Context, Phase) {}
func (NopObserver) DisruptionApplied(Context, Phase, Disruption, time.Duration, error) {}

// MultiObserver は通知を複数のオブザーバーに順に配る
type MultiObserver []Observer

func (m MultiObserver) Evaluated(dc Context, phase Phase) {
	for _, o := range m {
		o.Evaluated(dc, phase)
	}
}

func (m MultiObserver) Triggered(dc Context, phase Phase) {
	for _, o := range m {
		o.Triggered(dc, phase)
	}
}

func (m MultiObserver) DisruptionApplied(dc Context, phase Phase, d Disruption, elapsed time.Duration, err error) {
	for _, o := range m {
		o.DisruptionApplied(dc, phase, d, elapsed, err)
	}
}
