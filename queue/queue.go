// Package queue implements the priority booking queue feeding the engine's
// single processing loop.
//
// Priority-flagged requests are serviced before ordinary ones. Within a
// class, requests are dequeued in arrival order, though callers must not
// rely on stable ordering under contention.
package queue

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/lotgo/model"
)

// ErrClosed is returned when enqueueing on a closed queue.
var ErrClosed = errors.New("booking queue closed")

// Compile time check to ensure requestHeap satisfies the heap interface.
var _ heap.Interface = (*requestHeap)(nil)

type item struct {
	req   *model.BookingRequest
	seq   uint64 // arrival order tie-breaker
	index int    // maintained by heap.Interface methods
}

type requestHeap []*item

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if h[i].req.Priority != h[j].req.Priority {
		return h[i].req.Priority
	}
	return h[i].seq < h[j].seq
}

func (h requestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *requestHeap) Push(x any) {
	it, _ := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // avoid memory leak
	it.index = -1
	*h = old[:n-1]
	return it
}

// BookingQueue is a blocking priority queue of booking requests.
type BookingQueue struct {
	mu     sync.Mutex
	items  requestHeap
	seq    uint64
	signal chan struct{}
	closed bool
}

// New creates an empty BookingQueue.
func New() *BookingQueue {
	return &BookingQueue{
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a request. Returns ErrClosed after Close.
func (q *BookingQueue) Enqueue(req *model.BookingRequest) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.seq++
	heap.Push(&q.items, &item{req: req, seq: q.seq})
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Poll removes the highest-priority request, blocking up to timeout.
// ok is false on timeout or when the queue is closed and drained.
func (q *BookingQueue) Poll(timeout time.Duration) (req *model.BookingRequest, ok bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it, _ := heap.Pop(&q.items).(*item)
			q.mu.Unlock()
			return it.req, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-q.signal:
		case <-deadline.C:
			return nil, false
		}
	}
}

// Len returns the number of queued requests.
func (q *BookingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed and wakes blocked pollers. Queued requests
// remain drainable via Poll.
func (q *BookingQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}
