package modqueue

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

type entryHeap []*Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return Less(h[i], h[j]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// In-process queue, suitable for a single daemon instance.
type MemQueue struct {
	lk      sync.Mutex
	entries entryHeap
	seq     atomic.Int64
}

var _ Queue = (*MemQueue)(nil)

func NewMemQueue() *MemQueue {
	return &MemQueue{
		entries: entryHeap{},
	}
}

func (q *MemQueue) Push(ctx context.Context, e *Entry) error {
	q.lk.Lock()
	defer q.lk.Unlock()
	heap.Push(&q.entries, e)
	return nil
}

func (q *MemQueue) Pop(ctx context.Context) (*Entry, error) {
	q.lk.Lock()
	defer q.lk.Unlock()
	if len(q.entries) == 0 {
		return nil, nil
	}
	return heap.Pop(&q.entries).(*Entry), nil
}

func (q *MemQueue) Len(ctx context.Context) (int, error) {
	q.lk.Lock()
	defer q.lk.Unlock()
	return len(q.entries), nil
}

func (q *MemQueue) List(ctx context.Context) ([]*Entry, error) {
	q.lk.Lock()
	out := make([]*Entry, len(q.entries))
	copy(out, q.entries)
	q.lk.Unlock()
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out, nil
}

func (q *MemQueue) NextSequence(ctx context.Context) (int64, error) {
	return q.seq.Add(1), nil
}
