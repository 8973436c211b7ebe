package disruptor

import (
	"context"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "disruptor"

// Engine はグループ名からグループを引き、障害を実行する。
// グループは作成時に固定され、並行呼び出しに対して安全
type Engine struct {
	groups   map[string]*Group
	observer Observer
	tracer   trace.Tracer
}

// Option は Engine の作成時オプション
type Option func(*engineOptions)

type engineOptions struct {
	groups    []*Group
	observers []Observer
	tracer    trace.Tracer
}

// WithGroup はグループを登録する
func WithGroup(g *Group) Option {
	return func(o *engineOptions) {
		o.groups = append(o.groups, g)
	}
}

// WithGroups は複数のグループを登録する
func WithGroups(gs ...*Group) Option {
	return func(o *engineOptions) {
		o.groups = append(o.groups, gs...)
	}
}

// WithObserver はオブザーバーを追加する。通知は追加順
func WithObserver(obs Observer) Option {
	return func(o *engineOptions) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithTracer は評価スパンのトレーサーを設定する。
// デフォルト: otel.Tracer("disruptor")
func WithTracer(t trace.Tracer) Option {
	return func(o *engineOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// New は Engine を作成する。グループ名は重複してはならない
func New(opts ...Option) (*Engine, error) {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}

	groups := make(map[string]*Group, len(o.groups))
	for _, g := range o.groups {
		if g == nil {
			return nil, invalidf("nil group")
		}
		if _, exists := groups[g.name]; exists {
			return nil, invalidf("duplicate group %q", g.name)
		}
		groups[g.name] = g
	}

	e := &Engine{
		groups: groups,
		tracer: o.tracer,
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	switch len(o.observers) {
	case 0:
		e.observer = NopObserver{}
	case 1:
		e.observer = o.observers[0]
	default:
		e.observer = MultiObserver(o.observers)
	}
	return e, nil
}

// Empty はグループを持たないエンジンを返す。評価は何もしない
func Empty() *Engine {
	e, _ := New()
	return e
}

// Group は name で登録されたグループを返す
func (e *Engine) Group(name string) (*Group, bool) {
	g, ok := e.groups[name]
	return g, ok
}

// Groups は登録されたグループ名をソートして返す
func (e *Engine) Groups() []string {
	names := make([]string, 0, len(e.groups))
	for name := range e.groups {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Evaluate は group のうち phase に該当する設定を宣言順に評価する。
// トリガーが発火した設定の障害を順に実行し、最初に失敗した障害のエラーを返す。
//
// 登録されていないグループの評価は何もしない
func (e *Engine) Evaluate(ctx context.Context, group string, phase Phase) error {
	g, ok := e.groups[group]
	if !ok {
		return nil
	}
	return e.evaluate(ctx, g, NewContext(group), phase)
}

// Around は group の障害で op を保護する。BEFORE、op、AFTER の順に実行し、
// 失敗した時点で以降は実行しない。未登録のグループなら op をそのまま呼ぶ
func (e *Engine) Around(ctx context.Context, group string, op func(context.Context) error) error {
	_, err := AroundValue(ctx, e, group, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// AroundValue は値を返す操作向けの Around。すべて成功したときだけ値を返す
func AroundValue[T any](ctx context.Context, e *Engine, group string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	g, ok := e.groups[group]
	if !ok {
		return op(ctx)
	}

	dc := NewContext(group)
	if err := e.evaluate(ctx, g, dc, PhaseBefore); err != nil {
		return zero, err
	}
	result, err := op(ctx)
	if err != nil {
		return zero, err
	}
	if err := e.evaluate(ctx, g, dc, PhaseAfter); err != nil {
		return zero, err
	}
	return result, nil
}

func (e *Engine) evaluate(ctx context.Context, g *Group, dc Context, phase Phase) (err error) {
	ctx, span := e.tracer.Start(ctx, "disruptor.Evaluate",
		trace.WithAttributes(
			attribute.String("disruptor.group", dc.Group()),
			attribute.String("disruptor.phase", phase.String()),
		),
	)
	fired := 0
	defer func() {
		span.SetAttributes(attribute.Int("disruptor.fired", fired))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "disruption failed")
		}
		span.End()
	}()

	e.observer.Evaluated(dc, phase)

	for _, cfg := range g.configs {
		if cfg.phase != phase || !cfg.trigger.ShouldTrigger(dc) {
			continue
		}
		fired++
		e.observer.Triggered(dc, phase)

		for _, d := range cfg.disruptions {
			start := time.Now()
			derr := d.Disrupt(ctx, dc)
			e.observer.DisruptionApplied(dc, phase, d, time.Since(start), derr)
			if derr != nil {
				return derr
			}
		}
	}
	return nil
}
