package scheduler

import (
	"sync"
	"time"

	list "github.com/bahlo/generic-list-go"
	"github.com/casualjim/hoot/pkg/stdx"
	"github.com/google/uuid"
)

// Queue holds pending tasks in one FIFO per priority level.
//
// Poppers block on a wake channel that is closed and replaced on every Push and on
// Wake, which gives condition variable semantics with a deadline.
type Queue struct {
	mu      sync.Mutex
	levels  [numPriorities]*list.List[Task]
	pending int
	wake    chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{wake: make(chan struct{})}
	for i := range q.levels {
		q.levels[i] = list.New[Task]()
	}
	return q
}

// broadcast must be called with mu held.
func (q *Queue) broadcast() {
	close(q.wake)
	q.wake = make(chan struct{})
}

// Push appends task to the FIFO for priority and wakes blocked poppers.
// Out of range priorities are clamped to the nearest level.
func (q *Queue) Push(task Task, priority Priority) {
	q.mu.Lock()
	q.levels[priority.clamp()].PushBack(task)
	q.pending++
	q.broadcast()
	q.mu.Unlock()
}

// TryPop pops the head of the highest priority non-empty FIFO without blocking.
func (q *Queue) TryPop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// PopTimeout waits up to d for a pending task and pops it in strict priority order.
//
// It returns false when d elapses with nothing queued, and also when the queue is
// woken by Wake while empty so that a worker can re-check its own state.
func (q *Queue) PopTimeout(d time.Duration) (Task, bool) {
	q.mu.Lock()
	if task, ok := q.popLocked(); ok || d <= 0 {
		q.mu.Unlock()
		return task, ok
	}
	wake := q.wake
	q.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-wake:
		return q.TryPop()
	case <-timer.C:
		return q.TryPop()
	}
}

func (q *Queue) popLocked() (Task, bool) {
	if q.pending == 0 {
		return stdx.Zero[Task](), false
	}
	for _, p := range Priorities {
		fifo := q.levels[p]
		if head := fifo.Front(); head != nil {
			q.pending--
			return fifo.Remove(head), true
		}
	}
	return stdx.Zero[Task](), false
}

// Remove drops every queued task owned by owner across all priorities and returns
// how many were removed. A task that was already popped is not affected.
func (q *Queue) Remove(owner uuid.UUID) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var removed int
	for _, fifo := range q.levels {
		for e := fifo.Front(); e != nil; {
			next := e.Next()
			if e.Value.Owner == owner {
				fifo.Remove(e)
				removed++
			}
			e = next
		}
	}
	q.pending -= removed
	return removed
}

// Clear drops every queued task and returns how many there were.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.pending
	for _, fifo := range q.levels {
		fifo.Init()
	}
	q.pending = 0
	return n
}

// Wake releases every goroutine blocked in PopTimeout.
func (q *Queue) Wake() {
	q.mu.Lock()
	q.broadcast()
	q.mu.Unlock()
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// LenAt returns the number of tasks queued at priority.
func (q *Queue) LenAt(priority Priority) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.levels[priority.clamp()].Len()
}
