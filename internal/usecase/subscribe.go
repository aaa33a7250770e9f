package usecase

import (
	"context"
	"time"

	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/stream"
)

// keepAlive wraps a store subscription so that a failing listener never ends the
// consumer's stream. On failure it logs, emits an empty list and subscribes again after
// delay. Each snapshot passes through transform before it is emitted.
func keepAlive[T any](
	ctx context.Context,
	name string,
	delay time.Duration,
	subscribe func(ctx context.Context) *stream.Stream[[]T],
	transform func([]T) []T,
) *stream.Stream[[]T] {
	return stream.Start(ctx, func(ctx context.Context, emit func([]T) bool) error {
		for {
			src := subscribe(ctx)
			stopped, err := forward(ctx, src, emit, transform)
			src.Close()
			if stopped || ctx.Err() != nil {
				return nil
			}

			logger.Warn("%s subscription dropped, retrying in %s: %v", name, delay, err)
			if !emit([]T{}) {
				return nil
			}

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
		}
	}, nil)
}

// forward copies snapshots from src until src ends or the consumer goes away. stopped
// reports the latter.
func forward[T any](ctx context.Context, src *stream.Stream[[]T], emit func([]T) bool, transform func([]T) []T) (stopped bool, err error) {
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case items, ok := <-src.Updates():
			if !ok {
				return false, src.Err()
			}
			if items == nil {
				items = []T{}
			}
			if transform != nil {
				items = transform(items)
			}
			if !emit(items) {
				return true, nil
			}
		}
	}
}
