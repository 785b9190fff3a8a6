package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_TryPop(t *testing.T) {
	t.Run("Empty queue returns nothing", func(t *testing.T) {
		q := New[int]()

		_, ok := q.TryPop()

		assert.False(t, ok)
	})

	t.Run("Items come out in push order, once each", func(t *testing.T) {
		// Given: three pushed items
		q := New[string]()
		q.Push("a")
		q.Push("b")
		q.Push("c")
		require.Equal(t, 3, q.Len())

		// When: draining the queue
		var got []string
		for {
			item, ok := q.TryPop()
			if !ok {
				break
			}
			got = append(got, item)
		}

		// Then: FIFO order and nothing left
		assert.Equal(t, []string{"a", "b", "c"}, got)
		assert.Zero(t, q.Len())
	})
}

func TestQueue_Pop(t *testing.T) {
	t.Run("Pop waits for a producer", func(t *testing.T) {
		// Given: an empty queue and a producer that pushes later
		q := New[int]()
		go func() {
			time.Sleep(20 * time.Millisecond)
			q.Push(42)
		}()

		// When: popping
		item, err := q.Pop(context.Background())

		// Then: the pushed item is returned
		require.NoError(t, err)
		assert.Equal(t, 42, item)
	})

	t.Run("Pop returns the context error on cancellation", func(t *testing.T) {
		q := New[int]()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := q.Pop(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Concurrent producer keeps order", func(t *testing.T) {
		q := New[int]()
		const n = 1000

		go func() {
			for i := range n {
				q.Push(i)
			}
		}()

		for i := range n {
			item, err := q.Pop(context.Background())
			require.NoError(t, err)
			require.Equal(t, i, item)
		}
	})
}
