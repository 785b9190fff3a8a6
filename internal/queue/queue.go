// Package queue provides the unbounded FIFO used to pass moves between the
// session worker and the foreground loop.
package queue

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO. Push never blocks, so a producer can never stall on a slow
// consumer. Each pushed item is delivered at most once.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T

	// ready holds at most one wake-up token for a consumer blocked in Pop.
	ready chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
	}
}

// Push - appends an item.
func (that *Queue[T]) Push(item T) {
	that.mu.Lock()
	that.items = append(that.items, item)
	that.mu.Unlock()

	select {
	case that.ready <- struct{}{}:
	default:
	}
}

// TryPop - removes the oldest item if there is one. It never blocks.
func (that *Queue[T]) TryPop() (T, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	var zero T
	if len(that.items) == 0 {
		return zero, false
	}

	item := that.items[0]
	that.items[0] = zero
	that.items = that.items[1:]

	return item, true
}

// Pop - removes the oldest item, waiting for one to arrive or for ctx to end.
func (that *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if item, ok := that.TryPop(); ok {
			return item, nil
		}

		select {
		case <-that.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

func (that *Queue[T]) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.items)
}
