package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/pkg/stdx"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
)

const (
	// DefaultPollInterval bounds how long the worker blocks before re-checking
	// whether it should keep running.
	DefaultPollInterval = 50 * time.Millisecond

	idleCheckInterval = time.Millisecond
)

// PanicFunc is notified after the worker recovered from a panicking task.
type PanicFunc func(task Task, recovered any, stack []byte)

var (
	// Name sets the scheduler name used in log lines.
	Name = opts.ForName[Scheduler, string]("name")
	// PollInterval sets how long the worker waits for work per iteration.
	PollInterval = opts.ForName[Scheduler, time.Duration]("pollInterval")
	// PanicHandler installs a callback for tasks that panic.
	PanicHandler = opts.ForName[Scheduler, PanicFunc]("panicHandler")
)

// Global returns the lazily created process-wide scheduler.
var Global = sync.OnceValue(func() *Scheduler {
	return New(Name("global"))
})

// Scheduler owns one worker goroutine that drains a Queue.
type Scheduler struct {
	name         string
	pollInterval time.Duration
	panicHandler PanicFunc

	// mu orders Submit against Shutdown so nothing is queued after the worker stopped.
	mu      sync.RWMutex
	running atomic.Bool
	queue   *Queue
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stop    sync.Once
	logger  *slog.Logger

	// outstanding counts tasks accepted by Submit that have not finished, been
	// removed or been dropped.
	outstanding atomic.Int64

	submitted atomic.Uint64
	executed  atomic.Uint64
	panicked  atomic.Uint64
	cancelled atomic.Uint64
	dropped   atomic.Uint64
}

// Stats is a point in time snapshot of scheduler counters.
type Stats struct {
	// Submitted is the number of tasks accepted by Submit.
	Submitted uint64
	// Executed is the number of tasks the worker ran, including ones that panicked.
	Executed uint64
	// Panicked is the number of tasks that panicked.
	Panicked uint64
	// Cancelled is the number of tasks removed through RemoveTask.
	Cancelled uint64
	// Dropped is the number of tasks discarded by Shutdown.
	Dropped uint64
	// Pending is the number of tasks currently queued.
	Pending int
}

// New creates a scheduler and starts its worker.
func New(options ...opts.Option[Scheduler]) *Scheduler {
	s := &Scheduler{
		name:         "scheduler",
		pollInterval: DefaultPollInterval,
		queue:        NewQueue(),
		done:         make(chan struct{}),
	}
	if err := opts.Apply(s, options); err != nil {
		panic(err)
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	s.logger = slog.Default().With(slogx.LoggerName("scheduler"), slog.String("scheduler", s.name))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running.Store(true)

	go s.loop()
	return s
}

// Submit queues task at priority. It is a no-op when the scheduler has been shut
// down or task is empty.
func (s *Scheduler) Submit(task Task, priority Priority) {
	if task.IsZero() {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running.Load() {
		return
	}
	s.outstanding.Add(1)
	s.submitted.Add(1)
	s.queue.Push(task, priority)
}

// RemoveTask cancels every queued task owned by owner and returns how many were
// removed. A task of owner that is already running is left alone.
func (s *Scheduler) RemoveTask(owner uuid.UUID) int {
	n := s.queue.Remove(owner)
	if n > 0 {
		s.outstanding.Add(-int64(n))
		s.cancelled.Add(uint64(n))
	}
	return n
}

// Running reports whether the scheduler still accepts work.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Shutdown stops accepting work, wakes the worker and waits for it to exit. Queued
// tasks are dropped. Calling Shutdown again is a no-op. It must not be called from a
// task running on this scheduler.
func (s *Scheduler) Shutdown() {
	s.stop.Do(func() {
		s.mu.Lock()
		s.running.Store(false)
		s.mu.Unlock()

		s.cancel()
		s.queue.Wake()
		<-s.done

		if n := s.queue.Clear(); n > 0 {
			s.outstanding.Add(-int64(n))
			s.dropped.Add(uint64(n))
			s.logger.Debug("dropped queued tasks", slog.Int("count", n))
		}
	})
}

// WaitIdle blocks until no task is queued or running, or ctx is done.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	if s.outstanding.Load() <= 0 {
		return nil
	}
	ticker := time.NewTicker(idleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.outstanding.Load() <= 0 {
				return nil
			}
		}
	}
}

// Stats returns the current counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Submitted: s.submitted.Load(),
		Executed:  s.executed.Load(),
		Panicked:  s.panicked.Load(),
		Cancelled: s.cancelled.Load(),
		Dropped:   s.dropped.Load(),
		Pending:   s.queue.Len(),
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)
	s.logger.Debug("worker started", slog.Duration("poll_interval", s.pollInterval))

	for s.running.Load() {
		task, ok := s.queue.PopTimeout(s.pollInterval)
		if !ok {
			continue
		}
		if !s.running.Load() {
			s.outstanding.Add(-1)
			s.dropped.Add(1)
			break
		}
		s.execute(task)
	}
	s.logger.Debug("worker stopped")
}

func (s *Scheduler) execute(task Task) {
	defer s.outstanding.Add(-1)

	recovered, stack := stdx.Safely(func() { task.Run(s.ctx) })
	s.executed.Add(1)
	if recovered == nil {
		return
	}

	s.panicked.Add(1)
	s.logger.Error("task panicked", slogx.ID("owner", task.Owner), slogx.Panic(recovered, stack))
	if s.panicHandler != nil {
		stdx.Safely(func() { s.panicHandler(task, recovered, stack) })
	}
}
