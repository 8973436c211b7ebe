package disruptor

import "slices"

// Config はトリガーとフェーズを順序付きの障害リストに結び付ける。作成後は不変
type Config struct {
	phase       Phase
	trigger     Trigger
	disruptions []Disruption
}

// NewConfig は phase で trigger が発火するたびに disruptions を順に実行する設定を作成する。
// trigger が nil なら発火しない
func NewConfig(phase Phase, trigger Trigger, disruptions ...Disruption) (*Config, error) {
	if phase != PhaseBefore && phase != PhaseAfter {
		return nil, invalidf("unknown phase %d", phase)
	}
	if trigger == nil {
		trigger = Never()
	}
	for i, d := range disruptions {
		if d == nil {
			return nil, invalidf("disruption %d is nil", i)
		}
	}
	return &Config{
		phase:       phase,
		trigger:     trigger,
		disruptions: slices.Clone(disruptions),
	}, nil
}

// Phase はフェーズを返す
func (c *Config) Phase() Phase { return c.phase }

// Trigger はトリガーを返す
func (c *Config) Trigger() Trigger { return c.trigger }

// Disruptions は障害を実行順に返す
func (c *Config) Disruptions() []Disruption {
	return slices.Clone(c.disruptions)
}

// Group は名前付きの順序付き設定リスト
type Group struct {
	name    string
	configs []*Config
}

// NewGroup は configs を指定順に評価するグループを作成する
func NewGroup(name string, configs ...*Config) (*Group, error) {
	if name == "" {
		return nil, invalidf("group name must not be empty")
	}
	for i, c := range configs {
		if c == nil {
			return nil, invalidf("group %q: config %d is nil", name, i)
		}
	}
	return &Group{
		name:    name,
		configs: slices.Clone(configs),
	}, nil
}

// Name はグループ名を返す
func (g *Group) Name() string { return g.name }

// Configs は設定を評価順に返す
func (g *Group) Configs() []*Config {
	return slices.Clone(g.configs)
}

// Must は err が nil でなければパニックし、そうでなければ v を返す。
// 正しいとわかっている静的な設定向け
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
