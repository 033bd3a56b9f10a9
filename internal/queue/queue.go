// Package queue provides the FIFO scene queue the pipeline workers pull
// from. The queue is modeled as an interface so the in-process memory
// backend (default, at-most-once, lost on crash) can be swapped for the
// Redis backend without touching pipeline logic.
package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned by Dequeue once the queue has been shut down.
var ErrClosed = errors.New("queue closed")

// Queue is a FIFO of scene ids awaiting pipeline processing.
type Queue interface {
	// Enqueue adds a scene id to the back of the queue.
	Enqueue(ctx context.Context, sceneID string) error

	// Dequeue blocks until a scene id is available, the context is
	// cancelled, or the queue is closed. A dequeued id is consumed by
	// exactly one caller.
	Dequeue(ctx context.Context) (string, error)

	// Close releases the queue's resources. Blocked Dequeue calls return
	// ErrClosed.
	Close() error
}
