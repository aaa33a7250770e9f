// Package stream turns store listeners into cancelable live sequences.
//
// A Stream is fed by exactly one producer goroutine. Every emitted value is a full
// snapshot, so the channel conflates: a consumer that falls behind receives the most
// recent snapshot rather than a backlog. Close cancels the producer and blocks until it
// has returned, which is when the underlying listener is guaranteed to be released.
package stream

import (
	"context"
	"sync"
)

// Producer runs until ctx is done or it fails. It pushes snapshots with emit, which
// reports false once the stream is closed.
type Producer[T any] func(ctx context.Context, emit func(T) bool) error

type Stream[T any] struct {
	ch      chan T
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	err     error
	onClose func()
}

// Start launches p in its own goroutine. release, when non-nil, runs exactly once after
// the producer has returned.
func Start[T any](ctx context.Context, p Producer[T], release func()) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		ch:      make(chan T, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
		onClose: release,
	}

	go func() {
		defer close(s.done)
		err := p(ctx, func(v T) bool { return s.emit(ctx, v) })
		if err != nil && ctx.Err() == nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
		s.release()
		close(s.ch)
	}()

	return s
}

// Failed returns a stream that is already terminated with err.
func Failed[T any](err error) *Stream[T] {
	s := &Stream[T]{
		ch:     make(chan T),
		cancel: func() {},
		done:   make(chan struct{}),
		err:    err,
	}
	close(s.ch)
	close(s.done)
	return s
}

func (s *Stream[T]) emit(ctx context.Context, v T) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case s.ch <- v:
			return true
		default:
		}
		// drop the stale snapshot the consumer has not picked up yet
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *Stream[T]) release() {
	s.once.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// Updates is closed when the stream terminates, either through Close or a producer error.
func (s *Stream[T]) Updates() <-chan T {
	return s.ch
}

// Err reports why the producer stopped. It is nil after a plain Close.
func (s *Stream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the producer has returned and the listener is released.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// Close is idempotent and safe to call from any goroutine.
func (s *Stream[T]) Close() {
	s.cancel()
	<-s.done
}

// Map derives a stream whose snapshots are fn applied to each snapshot of src.
// Closing the derived stream closes src.
func Map[T, U any](ctx context.Context, src *Stream[T], fn func(T) U) *Stream[U] {
	return Start(ctx, func(ctx context.Context, emit func(U) bool) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case v, ok := <-src.Updates():
				if !ok {
					return src.Err()
				}
				if !emit(fn(v)) {
					return nil
				}
			}
		}
	}, src.Close)
}
