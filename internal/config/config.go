package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"chaos-disruptor/internal/logger"
	"chaos-disruptor/internal/scenario"
	"chaos-disruptor/pkg/disruptor"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	LogLevel string                   `yaml:"log_level" json:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	Groups   map[string][]EntryConfig `yaml:"groups" json:"groups" validate:"dive,keys,required,endkeys,dive"`
	Run      RunConfig                `yaml:"run" json:"run"`
}

// EntryConfig はグループ内の1つの設定（フェーズ、トリガー、障害）
type EntryConfig struct {
	Phase       string             `yaml:"phase" json:"phase" validate:"omitempty,oneof=before after"`
	Trigger     *TriggerConfig     `yaml:"trigger" json:"trigger"`
	Disruptions []DisruptionConfig `yaml:"disruptions" json:"disruptions" validate:"dive"`
}

// TriggerConfig はトリガー設定。lasting と limiting は inner を包む
type TriggerConfig struct {
	Type     string         `yaml:"type" json:"type" validate:"required,oneof=never random counting lasting limiting"`
	Chance   float64        `yaml:"chance" json:"chance" validate:"gte=0,lte=1"`
	Target   int            `yaml:"target" json:"target" validate:"gte=0"`
	Duration string         `yaml:"duration" json:"duration"`
	Limit    int            `yaml:"limit" json:"limit" validate:"gte=0"`
	Period   string         `yaml:"period" json:"period"`
	Inner    *TriggerConfig `yaml:"inner" json:"inner"`
}

// DisruptionConfig は障害設定
type DisruptionConfig struct {
	Type     string `yaml:"type" json:"type" validate:"required,oneof=delay raise"`
	Duration string `yaml:"duration" json:"duration"`
	Message  string `yaml:"message" json:"message"`
}

// RunConfig は負荷シナリオ設定
type RunConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Duration    string   `yaml:"duration" json:"duration"`
	Workers     int      `yaml:"workers" json:"workers" validate:"gte=0"`
	Rate        float64  `yaml:"rate" json:"rate" validate:"gte=0"`
	WriteRatio  *float64 `yaml:"write_ratio" json:"write_ratio" validate:"omitempty,gte=0,lte=1"` // 0 は読み込みのみ
	KeySpace    int      `yaml:"key_space" json:"key_space" validate:"gte=0"`
	Groups      []string `yaml:"groups" json:"groups" validate:"dive,required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// エラーメッセージには設定ファイル上のキー名を使う
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return Parse(data, FormatYAML)
	case ".json":
		return Parse(data, FormatJSON)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// Format は設定の形式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Parse は設定データを解析する
func Parse(data []byte, format Format) (*FileConfig, error) {
	var config FileConfig
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}
	return &config, nil
}

// Validate は設定を検証する。すべての問題をまとめて返す
func (f *FileConfig) Validate() error {
	var errs []error

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", disruptor.ErrInvalidConfig, err)
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: failed '%s' validation", fe.Namespace(), fe.ActualTag()))
		}
	}

	for _, name := range f.GroupNames() {
		for i, entry := range f.Groups[name] {
			path := fmt.Sprintf("groups[%s][%d]", name, i)
			if entry.Trigger != nil {
				errs = append(errs, entry.Trigger.check(path+".trigger")...)
			}
			for j, d := range entry.Disruptions {
				errs = append(errs, d.check(fmt.Sprintf("%s.disruptions[%d]", path, j))...)
			}
		}
	}

	if f.Run.Duration != "" {
		if _, err := parseDuration(f.Run.Duration); err != nil {
			errs = append(errs, fmt.Errorf("run.duration: %w", err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", disruptor.ErrInvalidConfig, errors.Join(errs...))
}

// check はタグで表現できないトリガーの整合性を確認する
func (t *TriggerConfig) check(path string) []error {
	var errs []error
	switch t.Type {
	case "counting":
		if t.Target <= 0 {
			errs = append(errs, fmt.Errorf("%s.target must be positive", path))
		}
	case "lasting":
		if _, err := parseDuration(t.Duration); err != nil {
			errs = append(errs, fmt.Errorf("%s.duration: %w", path, err))
		}
	case "limiting":
		if _, err := parseDuration(t.Period); err != nil {
			errs = append(errs, fmt.Errorf("%s.period: %w", path, err))
		}
	}

	switch t.Type {
	case "lasting", "limiting":
		if t.Inner == nil {
			errs = append(errs, fmt.Errorf("%s.inner is required for %s", path, t.Type))
		} else {
			errs = append(errs, t.Inner.check(path+".inner")...)
		}
	default:
		if t.Inner != nil {
			errs = append(errs, fmt.Errorf("%s.inner is not allowed for %s", path, t.Type))
		}
	}
	return errs
}

func (d DisruptionConfig) check(path string) []error {
	if d.Type == "delay" {
		if _, err := parseDuration(d.Duration); err != nil {
			return []error{fmt.Errorf("%s.duration: %w", path, err)}
		}
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("duration is required")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative, got %v", d)
	}
	return d, nil
}

// GroupNames はグループ名をソートして返す
func (f *FileConfig) GroupNames() []string {
	names := make([]string, 0, len(f.Groups))
	for name := range f.Groups {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Level はログレベルを返す
func (f *FileConfig) Level() (logger.Level, error) {
	return logger.ParseLevel(f.LogLevel)
}

// BuildGroups は設定から disruptor のグループを作成する。
// 呼び出しごとに新しいトリガー状態を持つグループが作られる
func (f *FileConfig) BuildGroups() ([]*disruptor.Group, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	groups := make([]*disruptor.Group, 0, len(f.Groups))
	for _, name := range f.GroupNames() {
		configs := make([]*disruptor.Config, 0, len(f.Groups[name]))
		for i, entry := range f.Groups[name] {
			cfg, err := entry.build()
			if err != nil {
				return nil, fmt.Errorf("groups[%s][%d]: %w", name, i, err)
			}
			configs = append(configs, cfg)
		}
		g, err := disruptor.NewGroup(name, configs...)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Build は設定から disruptor.Engine を作成する
func (f *FileConfig) Build(opts ...disruptor.Option) (*disruptor.Engine, error) {
	groups, err := f.BuildGroups()
	if err != nil {
		return nil, err
	}
	return disruptor.New(append([]disruptor.Option{disruptor.WithGroups(groups...)}, opts...)...)
}

func (e EntryConfig) build() (*disruptor.Config, error) {
	phase := disruptor.PhaseBefore
	if e.Phase != "" {
		p, err := disruptor.ParsePhase(e.Phase)
		if err != nil {
			return nil, err
		}
		phase = p
	}

	var trigger disruptor.Trigger
	if e.Trigger != nil {
		t, err := e.Trigger.build()
		if err != nil {
			return nil, err
		}
		trigger = t
	}

	disruptions := make([]disruptor.Disruption, 0, len(e.Disruptions))
	for _, dc := range e.Disruptions {
		d, err := dc.build()
		if err != nil {
			return nil, err
		}
		disruptions = append(disruptions, d)
	}

	return disruptor.NewConfig(phase, trigger, disruptions...)
}

func (t *TriggerConfig) build() (disruptor.Trigger, error) {
	switch t.Type {
	case "never":
		return disruptor.Never(), nil
	case "random":
		return disruptor.Random(t.Chance)
	case "counting":
		return disruptor.Counting(t.Target)
	case "lasting":
		d, err := parseDuration(t.Duration)
		if err != nil {
			return nil, err
		}
		inner, err := t.Inner.build()
		if err != nil {
			return nil, err
		}
		return disruptor.Lasting(d, inner)
	case "limiting":
		period, err := parseDuration(t.Period)
		if err != nil {
			return nil, err
		}
		inner, err := t.Inner.build()
		if err != nil {
			return nil, err
		}
		return disruptor.Limiting(t.Limit, period, inner)
	default:
		return nil, fmt.Errorf("%w: unknown trigger type %q", disruptor.ErrInvalidConfig, t.Type)
	}
}

func (d DisruptionConfig) build() (disruptor.Disruption, error) {
	switch d.Type {
	case "delay":
		duration, err := parseDuration(d.Duration)
		if err != nil {
			return nil, err
		}
		return disruptor.Delay(duration)
	case "raise":
		message := d.Message
		return disruptor.Raise(func(disruptor.Context) any { return message })
	default:
		return nil, fmt.Errorf("%w: unknown disruption type %q", disruptor.ErrInvalidConfig, d.Type)
	}
}

// ToScenarioConfig は run セクションを scenario.Config に変換する
func (f *FileConfig) ToScenarioConfig() (scenario.Config, error) {
	rc := f.Run

	// デフォルト値の設定
	config := scenario.DefaultConfig()

	if rc.Name != "" {
		config.Name = rc.Name
	}
	if rc.Description != "" {
		config.Description = rc.Description
	}
	if rc.Duration != "" {
		d, err := time.ParseDuration(rc.Duration)
		if err != nil {
			return config, fmt.Errorf("invalid duration: %w", err)
		}
		config.Duration = d
	}
	if rc.Workers > 0 {
		config.Workers = rc.Workers
	}
	if rc.Rate > 0 {
		config.Rate = rc.Rate
	}
	if rc.WriteRatio != nil {
		config.WriteRatio = *rc.WriteRatio
	}
	if rc.KeySpace > 0 {
		config.KeySpace = rc.KeySpace
	}

	if len(rc.Groups) > 0 {
		config.Groups = slices.Clone(rc.Groups)
	} else {
		config.Groups = f.GroupNames()
	}

	return config, nil
}
