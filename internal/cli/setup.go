package cli

import (
	"fmt"
	"time"

	"chaos-disruptor/internal/config"
	"chaos-disruptor/internal/logger"
	"chaos-disruptor/internal/scenario"
	"chaos-disruptor/pkg/disruptor"
)

// sourceFlags は設定ファイルとプリセットの指定
type sourceFlags struct {
	configFile string
	preset     string
}

// overrideFlags はシナリオ設定を上書きするフラグ
type overrideFlags struct {
	duration time.Duration
	workers  int
	rate     float64
	groups   []string
}

// setup はエンジンの作り方とシナリオ設定の組
type setup struct {
	config scenario.Config
	build  func(opts ...disruptor.Option) (*disruptor.Engine, error)
}

// loadSetup は設定を決定する。
// 優先順位: 設定ファイル → プリセット → quick プリセット、その後フラグで上書き
func loadSetup(src sourceFlags, ov overrideFlags) (setup, error) {
	var s setup

	switch {
	case src.configFile != "":
		fileConfig, err := config.LoadFile(src.configFile)
		if err != nil {
			return s, fmt.Errorf("failed to load config: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return s, fmt.Errorf("invalid config: %w", err)
		}
		if fileConfig.LogLevel != "" {
			level, err := fileConfig.Level()
			if err != nil {
				return s, err
			}
			logger.SetLevel(level)
		}
		sc, err := fileConfig.ToScenarioConfig()
		if err != nil {
			return s, fmt.Errorf("invalid run section: %w", err)
		}
		s.config = sc
		s.build = fileConfig.Build
	case src.preset != "":
		preset, ok := scenario.GetPreset(src.preset)
		if !ok {
			return s, fmt.Errorf("unknown preset: %s (available: %v)", src.preset, scenario.ListPresets())
		}
		s.config = preset.Config
		s.build = preset.Engine
	default:
		preset := scenario.QuickScenario()
		s.config = preset.Config
		s.build = preset.Engine
	}

	if ov.duration > 0 {
		s.config.Duration = ov.duration
	}
	if ov.workers > 0 {
		s.config.Workers = ov.workers
	}
	if ov.rate > 0 {
		s.config.Rate = ov.rate
	}
	if len(ov.groups) > 0 {
		s.config.Groups = ov.groups
	}
	return s, nil
}
