package broker

import (
	"sync"
	"time"

	list "github.com/bahlo/generic-list-go"
	"github.com/casualjim/hoot/messages"
)

// DefaultCapacity is the queue capacity used when none is given.
const DefaultCapacity = 64

// MessageQueue buffers messages for a single subscriber between the publisher's
// goroutine and the scheduler's worker.
//
// The capacity is a soft target. Push waits a bounded time for room and then
// inserts anyway; Offer is the hard-bounded variant that refuses instead.
type MessageQueue[T any] struct {
	mu       sync.Mutex
	items    *list.List[*messages.Message[T]]
	capacity int
	waiters  int
	space    chan struct{}
}

// NewMessageQueue creates a queue; capacity <= 0 selects DefaultCapacity.
func NewMessageQueue[T any](capacity int) *MessageQueue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MessageQueue[T]{
		items:    list.New[*messages.Message[T]](),
		capacity: capacity,
		space:    make(chan struct{}),
	}
}

// Pop removes and returns the oldest message. It never blocks.
func (q *MessageQueue[T]) Pop() (*messages.Message[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	head := q.items.Front()
	if head == nil {
		return nil, false
	}
	msg := q.items.Remove(head)
	if q.waiters > 0 && q.items.Len() < q.capacity {
		close(q.space)
		q.space = make(chan struct{})
	}
	return msg, true
}

// Push appends msg. When the queue is full it first waits up to wait for a Pop to
// free a slot. The message is inserted either way; the result reports whether
// there was room for it, i.e. whether the capacity was respected.
func (q *MessageQueue[T]) Push(msg *messages.Message[T], wait time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	free := q.waitForSpace(wait)
	q.items.PushBack(msg)
	return free
}

// Offer is Push with a hard bound: if the queue is still full after waiting, msg is
// not inserted and Offer returns false.
func (q *MessageQueue[T]) Offer(msg *messages.Message[T], wait time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.waitForSpace(wait) {
		return false
	}
	q.items.PushBack(msg)
	return true
}

// waitForSpace must be called with mu held and returns with mu held.
func (q *MessageQueue[T]) waitForSpace(wait time.Duration) bool {
	if q.items.Len() < q.capacity {
		return true
	}
	if wait <= 0 {
		return false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for q.items.Len() >= q.capacity {
		space := q.space
		q.waiters++
		q.mu.Unlock()

		var expired bool
		select {
		case <-space:
		case <-timer.C:
			expired = true
		}

		q.mu.Lock()
		q.waiters--
		if expired {
			break
		}
	}
	return q.items.Len() < q.capacity
}

// Len returns the number of buffered messages, which may exceed Cap.
func (q *MessageQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Cap returns the configured capacity.
func (q *MessageQueue[T]) Cap() int {
	return q.capacity
}

// Clear drops every buffered message and returns how many there were.
func (q *MessageQueue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.items.Len()
	q.items.Init()
	if q.waiters > 0 {
		close(q.space)
		q.space = make(chan struct{})
	}
	return n
}
