package queue

import (
	"context"
	"sync"
)

const defaultBuffer = 256

// MemoryQueue is the in-process FIFO backend. Items are lost if the process
// crashes; acceptable for best-effort background work.
type MemoryQueue struct {
	ch        chan string
	closeOnce sync.Once
	done      chan struct{}
}

// NewMemoryQueue creates an in-memory queue with a bounded buffer.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		ch:   make(chan string, defaultBuffer),
		done: make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, sceneID string) error {
	select {
	case q.ch <- sceneID:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case id := <-q.ch:
		return id, nil
	case <-q.done:
		// Drain anything already buffered before reporting closed
		select {
		case id := <-q.ch:
			return id, nil
		default:
			return "", ErrClosed
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
