package usecase

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dragonflychat/pkg/stream"
)

func TestKeepAlive_ResubscribesAfterFailure(t *testing.T) {
	var attempts int32
	s := keepAlive(context.Background(), "test", 50*time.Millisecond,
		func(ctx context.Context) *stream.Stream[[]int] {
			n := atomic.AddInt32(&attempts, 1)
			if n == 1 {
				return stream.Failed[[]int](stderrors.New("unavailable"))
			}
			return stream.Start(ctx, func(ctx context.Context, emit func([]int) bool) error {
				emit([]int{3, 1, 2})
				<-ctx.Done()
				return nil
			}, nil)
		},
		func(v []int) []int { return append(v, 0) })

	empty := firstSnapshot(t, s)
	assert.Equal(t, []int{}, empty)

	got := awaitSnapshot(t, s, func(v []int) bool { return len(v) > 0 })
	assert.Equal(t, []int{3, 1, 2, 0}, got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))

	s.Close()
	assert.NoError(t, s.Err())
}

func TestKeepAlive_CloseDuringBackoff(t *testing.T) {
	s := keepAlive(context.Background(), "test", time.Hour,
		func(ctx context.Context) *stream.Stream[[]int] {
			return stream.Failed[[]int](stderrors.New("unavailable"))
		}, nil)

	firstSnapshot(t, s)

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked during backoff")
	}
}
