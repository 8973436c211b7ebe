package disruptor

import "strings"

// Context は実行中の評価を表す。評価ごとに作られ、変更されない
type Context struct {
	group string
}

// NewContext はグループの Context を作成する
func NewContext(group string) Context {
	return Context{group: group}
}

// Group はグループ名を返す
func (c Context) Group() string {
	return c.group
}

// Phase は設定を操作の前後どちらで評価するかを表す
type Phase int

const (
	PhaseBefore Phase = iota
	PhaseAfter
)

func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseAfter:
		return "after"
	default:
		return "unknown"
	}
}

// ParsePhase は "before" または "after" を解析する（大文字小文字は区別しない）
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "before":
		return PhaseBefore, nil
	case "after":
		return PhaseAfter, nil
	default:
		return 0, invalidf("unknown phase %q", s)
	}
}
