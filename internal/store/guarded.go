package store

import (
	"context"

	"chaos-disruptor/pkg/disruptor"
)

// Guarded は KV の各操作を disruptor グループで包む
type Guarded struct {
	kv     KV
	engine *disruptor.Engine
	group  string
}

// Guard は kv の操作に group の障害を注入するラッパーを返す
func Guard(kv KV, engine *disruptor.Engine, group string) *Guarded {
	return &Guarded{kv: kv, engine: engine, group: group}
}

// Group は対象グループ名を返す
func (g *Guarded) Group() string {
	return g.group
}

// Get implements KV.
func (g *Guarded) Get(ctx context.Context, key string) ([]byte, error) {
	return disruptor.AroundValue(ctx, g.engine, g.group, func(ctx context.Context) ([]byte, error) {
		return g.kv.Get(ctx, key)
	})
}

// Set implements KV.
func (g *Guarded) Set(ctx context.Context, key string, value []byte) error {
	return g.engine.Around(ctx, g.group, func(ctx context.Context) error {
		return g.kv.Set(ctx, key, value)
	})
}

// Delete implements KV.
func (g *Guarded) Delete(ctx context.Context, key string) error {
	return g.engine.Around(ctx, g.group, func(ctx context.Context) error {
		return g.kv.Delete(ctx, key)
	})
}
