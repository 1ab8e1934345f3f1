package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
)

// workItemHeap implements heap.Interface ordered by scheduled instant
type workItemHeap []*domain.ScheduledWorkItem

func (h workItemHeap) Len() int { return len(h) }

func (h workItemHeap) Less(i, j int) bool {
	return h[i].ScheduledAt.Before(h[j].ScheduledAt)
}

func (h workItemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *workItemHeap) Push(x interface{}) {
	*h = append(*h, x.(*domain.ScheduledWorkItem))
}

func (h *workItemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // Avoid memory leak
	*h = old[0 : n-1]
	return item
}

// DispatchQueue is a thread-safe queue of claimed work items ordered by
// their scheduled send instant
type DispatchQueue struct {
	items workItemHeap
	mu    sync.Mutex
}

// NewDispatchQueue creates a new dispatch queue
func NewDispatchQueue() *DispatchQueue {
	q := &DispatchQueue{items: make(workItemHeap, 0)}
	heap.Init(&q.items)
	return q
}

// Push adds a work item to the queue
func (q *DispatchQueue) Push(item *domain.ScheduledWorkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.items, item)
}

// PopDue removes and returns the earliest item whose scheduled instant is
// at or before now. Returns nil when nothing is due.
func (q *DispatchQueue) PopDue(now time.Time) *domain.ScheduledWorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 || q.items[0].ScheduledAt.After(now) {
		return nil
	}
	return heap.Pop(&q.items).(*domain.ScheduledWorkItem)
}

// Len returns the number of items in the queue
func (q *DispatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
