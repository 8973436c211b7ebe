package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Level はログレベルを表す
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel はレベル名を Level に変換する
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger はスレッドセーフなロガー
type Logger struct {
	level *slog.LevelVar
	sl    *slog.Logger
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New(os.Stderr, LevelInfo))
}

// Default はデフォルトのロガーを返す
func Default() *Logger {
	return defaultLogger.Load()
}

// SetDefault はデフォルトのロガーを置き換える
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// New は新しいロガーを作成する
func New(out io.Writer, minLevel Level) *Logger {
	level := &slog.LevelVar{}
	level.Set(minLevel)
	return &Logger{
		level: level,
		sl:    slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})),
	}
}

// SetLevel はログレベルを設定する
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level)
}

// Level は現在のログレベルを返す
func (l *Logger) Level() Level {
	return l.level.Level()
}

// Slog は内部の slog.Logger を返す
func (l *Logger) Slog() *slog.Logger {
	return l.sl
}

func (l *Logger) log(level Level, group string, format string, args ...any) {
	if !l.sl.Enabled(context.Background(), level) {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if group != "" {
		l.sl.Log(context.Background(), level, msg, slog.String("group", group))
		return
	}
	l.sl.Log(context.Background(), level, msg)
}

// Debug はデバッグログを出力する
func (l *Logger) Debug(group string, format string, args ...any) {
	l.log(LevelDebug, group, format, args...)
}

// Info は情報ログを出力する
func (l *Logger) Info(group string, format string, args ...any) {
	l.log(LevelInfo, group, format, args...)
}

// Warn は警告ログを出力する
func (l *Logger) Warn(group string, format string, args ...any) {
	l.log(LevelWarn, group, format, args...)
}

// Error はエラーログを出力する
func (l *Logger) Error(group string, format string, args ...any) {
	l.log(LevelError, group, format, args...)
}

// グローバル関数（デフォルトロガーを使用）

// SetLevel はデフォルトロガーのログレベルを設定する
func SetLevel(level Level) {
	Default().SetLevel(level)
}

// Debug はデバッグログを出力する
func Debug(group string, format string, args ...any) {
	Default().Debug(group, format, args...)
}

// Info は情報ログを出力する
func Info(group string, format string, args ...any) {
	Default().Info(group, format, args...)
}

// Warn は警告ログを出力する
func Warn(group string, format string, args ...any) {
	Default().Warn(group, format, args...)
}

// Error はエラーログを出力する
func Error(group string, format string, args ...any) {
	Default().Error(group, format, args...)
}
