package modqueue

import (
	"context"
)

// Shared priority queue of reports awaiting human review.
//
// Pop is atomic: two concurrent callers never receive the same entry. An empty queue is signaled by a nil entry with a nil error.
type Queue interface {
	Push(ctx context.Context, e *Entry) error
	Pop(ctx context.Context) (*Entry, error)
	Len(ctx context.Context) (int, error)
	// Returns all pending entries in pop order, without removing them.
	List(ctx context.Context) ([]*Entry, error)
	// Monotonic sequence generator, used for tie-breaking and for audit lookup ids.
	NextSequence(ctx context.Context) (int64, error)
}
