package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func TestScheduler_RunsImmediatelyAndPeriodically(t *testing.T) {
	var runs atomic.Int32
	s := New(10*time.Millisecond, 0, func(ctx context.Context) { runs.Add(1) })
	s.Logger = quietLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestScheduler_FirstRunDoesNotWaitForTick(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := New(time.Hour, 0, func(ctx context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	s.Logger = quietLogger()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run at start")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestScheduler_RunsDoNotOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	s := New(time.Millisecond, 0, func(ctx context.Context) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
	})
	s.Logger = quietLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestScheduler_TimeoutCancelsRun(t *testing.T) {
	var mu sync.Mutex
	var runErr error
	s := New(time.Hour, 20*time.Millisecond, func(ctx context.Context) {
		<-ctx.Done()
		mu.Lock()
		runErr = ctx.Err()
		mu.Unlock()
	})
	s.Logger = quietLogger()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runErr != nil
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, runErr, context.DeadlineExceeded)
}

func TestScheduler_PanickingJobKeepsScheduling(t *testing.T) {
	var runs atomic.Int32
	var logs bytes.Buffer
	s := New(5*time.Millisecond, 0, func(ctx context.Context) {
		runs.Add(1)
		panic("bad cycle")
	})
	s.Logger = log.New(&logs, "", 0)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	assert.GreaterOrEqual(t, runs.Load(), int32(2))
	assert.Contains(t, logs.String(), "panicked: bad cycle")
}
