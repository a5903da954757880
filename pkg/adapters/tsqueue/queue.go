// Package tsqueue keeps the presentation timestamps of submitted packets for
// decoders that emit frames in presentation order without timestamps.
package tsqueue

import "container/heap"

// Queue is a min-heap of timestamps. The zero value is ready to use.
type Queue struct {
	h int64Heap
}

// Push records a timestamp.
func (q *Queue) Push(ts int64) {
	heap.Push(&q.h, ts)
}

// Pop removes and returns the smallest timestamp. ok is false when the queue is empty.
func (q *Queue) Pop() (ts int64, ok bool) {
	if len(q.h) == 0 {
		return 0, false
	}
	return heap.Pop(&q.h).(int64), true
}

// Len returns the number of pending timestamps.
func (q *Queue) Len() int {
	return len(q.h)
}

// Reset drops every pending timestamp.
func (q *Queue) Reset() {
	q.h = q.h[:0]
}

type int64Heap []int64

func (h int64Heap) Len() int            { return len(h) }
func (h int64Heap) Less(i, j int) bool  { return h[i] < h[j] }
func (h int64Heap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *int64Heap) Push(x interface{}) { *h = append(*h, x.(int64)) }
func (h *int64Heap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
