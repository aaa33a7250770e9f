// Package memory holds in-process implementations of the document and realtime store
// repositories. They honour the same contracts as the Firebase adapters, including
// live subscriptions, and expose counters that tests use to check store traffic.
package memory

import (
	"context"
	"sync"

	"dragonflychat/pkg/stream"
)

type listener struct {
	notify chan struct{}
	fail   chan error
}

// hub fans change notifications out to every open subscription of one store.
type hub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]*listener
}

func newHub() *hub {
	return &hub{listeners: make(map[int]*listener)}
}

func (h *hub) subscribe() (int, *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	l := &listener{
		notify: make(chan struct{}, 1),
		fail:   make(chan error, 1),
	}
	h.listeners[h.nextID] = l
	return h.nextID, l
}

func (h *hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, id)
}

func (h *hub) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, l := range h.listeners {
		select {
		case l.notify <- struct{}{}:
		default:
		}
	}
}

func (h *hub) failAll(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, l := range h.listeners {
		select {
		case l.fail <- err:
		default:
		}
	}
}

func (h *hub) active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// watch emits snapshot() now and again after every notification until the stream is
// closed or the hub cancels its listeners.
func watch[T any](ctx context.Context, h *hub, snapshot func() T) *stream.Stream[T] {
	id, l := h.subscribe()
	return stream.Start(ctx, func(ctx context.Context, emit func(T) bool) error {
		for {
			if !emit(snapshot()) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case err := <-l.fail:
				return err
			case <-l.notify:
			}
		}
	}, func() { h.unsubscribe(id) })
}
