package tts

import (
	"context"
	"sync"
)

// onceCell holds the outcome of a computation that runs at most once.
// Callers that arrive while it runs share the same outcome; a caller whose
// context ends stops waiting without affecting the computation.
type onceCell[T any] struct {
	mu      sync.Mutex
	started bool
	done    chan struct{}
	val     T
	err     error
}

func newOnceCell[T any]() *onceCell[T] {
	return &onceCell[T]{done: make(chan struct{})}
}

// get starts fill on the first call and waits for its outcome or ctx.
func (c *onceCell[T]) get(ctx context.Context, fill func() (T, error)) (T, error) {
	c.mu.Lock()
	if !c.started {
		c.started = true
		go func() {
			c.val, c.err = fill()
			close(c.done)
		}()
	}
	c.mu.Unlock()

	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// filled reports whether the computation has finished.
func (c *onceCell[T]) filled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// result returns the outcome. ok is false while the computation has not
// finished.
func (c *onceCell[T]) result() (val T, ok bool, err error) {
	if !c.filled() {
		return val, false, nil
	}
	return c.val, true, c.err
}
