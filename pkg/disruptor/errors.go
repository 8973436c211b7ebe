package disruptor

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig は構築時のすべての設定エラーが包むエラー
var ErrInvalidConfig = errors.New("disruptor: invalid configuration")

// DisruptionError は error 以外の値で失敗した障害、またはキャンセルされた遅延を表す
type DisruptionError struct {
	Group string
	Cause any
}

func (e *DisruptionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("disruption in group %q", e.Group)
	}
	return fmt.Sprintf("disruption in group %q: %v", e.Group, e.Cause)
}

// Unwrap は原因が error ならそれを返す
func (e *DisruptionError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// IsDisruption は err が *DisruptionError か、それを包んでいるかを返す
func IsDisruption(err error) bool {
	var de *DisruptionError
	return errors.As(err, &de)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
