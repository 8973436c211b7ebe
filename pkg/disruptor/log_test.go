package disruptor

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer は複数のゴルーチンから書き込まれるログを集める
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogs(t *testing.T, level slog.Level) *syncBuffer {
	t.Helper()
	out := &syncBuffer{}
	SetLogger(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { SetLogger(nil) })
	return out
}

func TestSetLoggerReceivesLatch(t *testing.T) {
	out := captureLogs(t, slog.LevelInfo)

	trigger := Must(Lasting(time.Minute, always))
	assert.True(t, trigger.ShouldTrigger(NewContext("payments")))

	assert.Contains(t, out.String(), "Lasting disruption started")
	assert.Contains(t, out.String(), "group=payments")
}

func TestSetLoggerReceivesLimitReached(t *testing.T) {
	out := captureLogs(t, slog.LevelInfo)

	trigger := Must(Limiting(1, time.Hour, always))
	assert.True(t, trigger.ShouldTrigger(testCtx))

	assert.Contains(t, out.String(), "Disruption limit reached")
	assert.Contains(t, out.String(), "limit=1")
}

func TestSetLoggerLevelFiltersDelay(t *testing.T) {
	out := captureLogs(t, slog.LevelInfo)
	d := Must(Delay(0))

	assert.NoError(t, d.Disrupt(context.Background(), testCtx))
	assert.Empty(t, out.String())

	SetLogger(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})))
	assert.NoError(t, d.Disrupt(context.Background(), testCtx))
	assert.Contains(t, out.String(), "Starting delay")
}

func TestSetLoggerNilRestoresDefault(t *testing.T) {
	SetLogger(slog.New(slog.NewTextHandler(&syncBuffer{}, nil)))
	SetLogger(nil)
	assert.Same(t, slog.Default(), logger())
}
