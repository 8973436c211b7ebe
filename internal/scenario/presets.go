package scenario

import (
	"errors"
	"slices"
	"time"

	"chaos-disruptor/pkg/disruptor"
)

// Preset はシナリオ設定と障害グループの組
type Preset struct {
	Config Config
	// Groups は実行ごとに新しいグループを生成する。トリガーは状態を持つため共有しない
	Groups func() ([]*disruptor.Group, error)
}

// Engine はプリセットのグループで新しいエンジンを作成する
func (p Preset) Engine(opts ...disruptor.Option) (*disruptor.Engine, error) {
	var groups []*disruptor.Group
	if p.Groups != nil {
		var err error
		if groups, err = p.Groups(); err != nil {
			return nil, err
		}
	}
	return disruptor.New(append([]disruptor.Option{disruptor.WithGroups(groups...)}, opts...)...)
}

// BaselineScenario は障害注入なしの基本負荷テスト
func BaselineScenario() Preset {
	return Preset{
		Config: Config{
			Name:        "baseline",
			Description: "Load without any injected disruption",
			Duration:    10 * time.Second,
			Workers:     10,
			Rate:        500,
			WriteRatio:  0.5,
			KeySpace:    100,
		},
	}
}

// QuickScenario は短時間の動作確認用
// 10% の操作に 20ms の遅延
func QuickScenario() Preset {
	return Preset{
		Config: Config{
			Name:        "quick",
			Description: "Quick test for verification",
			Duration:    3 * time.Second,
			Workers:     5,
			Rate:        200,
			WriteRatio:  0.5,
			KeySpace:    50,
			Groups:      []string{DefaultGroup},
		},
		Groups: func() ([]*disruptor.Group, error) {
			random, err := disruptor.Random(0.1)
			if err != nil {
				return nil, err
			}
			delay, err := disruptor.Delay(20 * time.Millisecond)
			if err != nil {
				return nil, err
			}
			cfg, err := disruptor.NewConfig(disruptor.PhaseBefore, random, delay)
			if err != nil {
				return nil, err
			}
			g, err := disruptor.NewGroup(DefaultGroup, cfg)
			if err != nil {
				return nil, err
			}
			return []*disruptor.Group{g}, nil
		},
	}
}

// LatencyScenario は読み込みと書き込みに遅延を注入する
// 読み込みはランダムに、書き込みは 50 回ごとに 2 秒間遅くなる
func LatencyScenario() Preset {
	return Preset{
		Config: Config{
			Name:        "latency",
			Description: "Latency injection on reads and writes",
			Duration:    10 * time.Second,
			Workers:     20,
			Rate:        300,
			WriteRatio:  0.5,
			KeySpace:    100,
			Groups:      []string{"reads", "writes"},
		},
		Groups: func() ([]*disruptor.Group, error) {
			reads, err := disruptor.NewGroup("reads",
				disruptor.Must(disruptor.NewConfig(disruptor.PhaseBefore,
					disruptor.Must(disruptor.Random(0.3)),
					disruptor.Must(disruptor.Delay(50*time.Millisecond)),
				)),
			)
			if err != nil {
				return nil, err
			}
			writes, err := disruptor.NewGroup("writes",
				disruptor.Must(disruptor.NewConfig(disruptor.PhaseBefore,
					disruptor.Must(disruptor.Lasting(2*time.Second, disruptor.Must(disruptor.Counting(50)))),
					disruptor.Must(disruptor.Delay(20*time.Millisecond)),
				)),
			)
			if err != nil {
				return nil, err
			}
			return []*disruptor.Group{reads, writes}, nil
		},
	}
}

// FlakyScenario は断続的な失敗を注入する
// 実行前に 5%、実行後に 20 回に 1 回失敗する
func FlakyScenario() Preset {
	return Preset{
		Config: Config{
			Name:        "flaky",
			Description: "Intermittent failures before and after operations",
			Duration:    10 * time.Second,
			Workers:     10,
			Rate:        500,
			WriteRatio:  0.3,
			KeySpace:    100,
			Groups:      []string{DefaultGroup},
		},
		Groups: func() ([]*disruptor.Group, error) {
			g, err := disruptor.NewGroup(DefaultGroup,
				disruptor.Must(disruptor.NewConfig(disruptor.PhaseBefore,
					disruptor.Must(disruptor.Random(0.05)),
					disruptor.Must(disruptor.Raise(func(disruptor.Context) any { return "transient failure" })),
				)),
				disruptor.Must(disruptor.NewConfig(disruptor.PhaseAfter,
					disruptor.Must(disruptor.Counting(20)),
					disruptor.RaiseError(errors.New("response lost")),
				)),
			)
			if err != nil {
				return nil, err
			}
			return []*disruptor.Group{g}, nil
		},
	}
}

// OutageScenario は一定時間続く全面障害を注入する
// 10 秒に 1 回まで、発生すると 3 秒間すべての操作が失敗する
func OutageScenario() Preset {
	return Preset{
		Config: Config{
			Name:        "outage",
			Description: "Sustained outages capped by a rate limit",
			Duration:    15 * time.Second,
			Workers:     10,
			Rate:        200,
			WriteRatio:  0.5,
			KeySpace:    100,
			Groups:      []string{DefaultGroup},
		},
		Groups: func() ([]*disruptor.Group, error) {
			trigger, err := disruptor.Lasting(3*time.Second,
				disruptor.Must(disruptor.Limiting(1, 10*time.Second, disruptor.Must(disruptor.Random(0.01)))))
			if err != nil {
				return nil, err
			}
			g, err := disruptor.NewGroup(DefaultGroup,
				disruptor.Must(disruptor.NewConfig(disruptor.PhaseBefore, trigger,
					disruptor.Must(disruptor.Raise(func(disruptor.Context) any { return "backend unavailable" })),
				)),
			)
			if err != nil {
				return nil, err
			}
			return []*disruptor.Group{g}, nil
		},
	}
}

var presets = map[string]func() Preset{
	"baseline": BaselineScenario,
	"quick":    QuickScenario,
	"latency":  LatencyScenario,
	"flaky":    FlakyScenario,
	"outage":   OutageScenario,
}

// GetPreset は名前からプリセットシナリオを取得する
func GetPreset(name string) (Preset, bool) {
	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Preset{}, false
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
