package hoot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/casualjim/hoot/broker"
	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/pkg/stdx"
	"github.com/casualjim/hoot/pkg/uuidx"
	"github.com/casualjim/hoot/scheduler"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
)

// Handler receives messages on the scheduler's worker goroutine.
type Handler[T any] func(ctx context.Context, msg *messages.Message[T])

type subscriberConfig struct {
	name         string
	priority     scheduler.Priority
	capacity     int
	pushTimeout  time.Duration
	dropWhenFull bool
}

// SubscriberOption configures a Subscriber.
type SubscriberOption = opts.Option[subscriberConfig]

var (
	// SubscriberName labels the subscriber in log lines.
	SubscriberName = opts.ForName[subscriberConfig, string]("name")
	// AtPriority sets the initial task priority of deliveries.
	AtPriority = opts.ForName[subscriberConfig, scheduler.Priority]("priority")
	// Capacity sets the soft capacity of the subscriber queue.
	Capacity = opts.ForName[subscriberConfig, int]("capacity")
	// PushTimeout sets how long a publisher waits for room in a full queue.
	PushTimeout = opts.ForName[subscriberConfig, time.Duration]("pushTimeout")
)

// DropWhenFull makes the subscriber discard messages that still find the queue full
// after PushTimeout, instead of queueing past capacity.
func DropWhenFull() SubscriberOption {
	return opts.Type[subscriberConfig](func(c *subscriberConfig) error {
		c.dropWhenFull = true
		return nil
	})
}

// SubscriberStats is a point in time snapshot of subscriber counters.
type SubscriberStats struct {
	// Received counts messages handed to the subscriber by its channel.
	Received uint64
	// Delivered counts handler invocations that returned normally.
	Delivered uint64
	// Overflowed counts messages queued beyond capacity.
	Overflowed uint64
	// Dropped counts messages discarded by DropWhenFull or a stopped scheduler.
	Dropped uint64
	// Panicked counts handler invocations that panicked.
	Panicked uint64
	// Queued is the current queue length.
	Queued int
}

// Subscriber receives messages of type T from one channel and runs its handler for
// each of them on the scheduler, one task per message.
//
// A subscriber must be closed when it is no longer needed. If a bound subscriber
// becomes unreachable without Close, a GC cleanup unregisters it, and its queued
// deliveries find it gone and do nothing.
type Subscriber[T any] struct {
	id           uuid.UUID
	name         string
	channel      *broker.Channel[T]
	sched        *scheduler.Scheduler
	queue        *broker.MessageQueue[T]
	pushTimeout  time.Duration
	dropWhenFull bool
	priority     atomic.Int32
	logger       *slog.Logger

	// mu serialises Bind and Close.
	mu      sync.Mutex
	bound   bool
	closed  atomic.Bool
	handler Handler[T]
	run     func(context.Context)
	cleanup runtime.Cleanup

	received   atomic.Uint64
	delivered  atomic.Uint64
	overflowed atomic.Uint64
	dropped    atomic.Uint64
	panicked   atomic.Uint64
}

// NewSubscriber creates an unbound subscriber for topic on bus.
func NewSubscriber[T any](bus *Bus, topic string, options ...SubscriberOption) (*Subscriber[T], error) {
	return SubscriberFor(bus, Channel[T](bus, topic), options...)
}

// SubscriberFor creates an unbound subscriber for an existing channel, delivering on
// the bus scheduler.
func SubscriberFor[T any](bus *Bus, ch *broker.Channel[T], options ...SubscriberOption) (*Subscriber[T], error) {
	if ch == nil {
		return nil, ErrUnbound
	}
	cfg := subscriberConfig{
		priority:    bus.config.DefaultPriority,
		capacity:    bus.config.QueueCapacity,
		pushTimeout: bus.config.PushTimeout,
	}
	if err := opts.Apply(&cfg, options); err != nil {
		return nil, err
	}
	if !cfg.priority.Valid() {
		return nil, fmt.Errorf("hoot: invalid priority %s", cfg.priority)
	}
	if cfg.pushTimeout < 0 {
		return nil, fmt.Errorf("hoot: push timeout must not be negative, got %s", cfg.pushTimeout)
	}

	id := uuidx.New()
	if cfg.name == "" {
		cfg.name = uuidx.Short(id)
	}
	s := &Subscriber[T]{
		id:           id,
		name:         cfg.name,
		channel:      ch,
		sched:        bus.sched,
		queue:        broker.NewMessageQueue[T](cfg.capacity),
		pushTimeout:  cfg.pushTimeout,
		dropWhenFull: cfg.dropWhenFull,
		logger: slog.Default().With(
			slogx.LoggerName("subscriber"),
			slogx.Topic(ch.Topic()),
			slog.String("subscriber", cfg.name),
		),
	}
	s.priority.Store(int32(cfg.priority))
	return s, nil
}

// Bind registers handler and starts receiving. Binding an already bound subscriber
// is a no-op that keeps the first handler.
func (s *Subscriber[T]) Bind(handler Handler[T]) error {
	if handler == nil {
		return ErrNilHandler
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrClosed
	}
	if s.bound {
		return nil
	}

	// Listener and task only reach the subscriber through a weak pointer, so neither
	// the channel nor the scheduler keeps it alive.
	self := weak.Make(s)
	s.handler = handler
	s.run = func(ctx context.Context) {
		if sub := self.Value(); sub != nil {
			sub.deliver(ctx)
		}
	}
	s.channel.AddListener(broker.Listener[T]{
		ID: s.id,
		Enqueue: func(msg *messages.Message[T]) {
			if sub := self.Value(); sub != nil {
				sub.enqueue(msg)
			}
		},
	})
	s.cleanup = runtime.AddCleanup(s, func(b binding[T]) { b.release() }, binding[T]{
		channel: s.channel,
		sched:   s.sched,
		id:      s.id,
	})
	s.bound = true
	s.logger.Debug("bound", slogx.Priority(s.Priority()))
	return nil
}

// Close unregisters the subscriber from its channel and then cancels its queued
// deliveries. A delivery already running is not interrupted. Close is idempotent.
func (s *Subscriber[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.bound {
		s.cleanup.Stop()
		binding[T]{channel: s.channel, sched: s.sched, id: s.id}.release()
	}
	if n := s.queue.Clear(); n > 0 {
		s.logger.Debug("discarded undelivered messages", slog.Int("count", n))
	}
}

// SetPriority changes the priority of future deliveries. Deliveries already queued
// keep the priority they were submitted with.
func (s *Subscriber[T]) SetPriority(p scheduler.Priority) {
	s.priority.Store(int32(p))
}

// Priority returns the priority used for new deliveries.
func (s *Subscriber[T]) Priority() scheduler.Priority {
	return scheduler.Priority(s.priority.Load())
}

// ID returns the identity used for the channel listener and the scheduler tasks.
func (s *Subscriber[T]) ID() uuid.UUID {
	return s.id
}

// Name returns the subscriber label.
func (s *Subscriber[T]) Name() string {
	return s.name
}

// Topic returns the topic of the channel.
func (s *Subscriber[T]) Topic() string {
	return s.channel.Topic()
}

// Bound reports whether Bind succeeded and Close has not been called.
func (s *Subscriber[T]) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound && !s.closed.Load()
}

// Stats returns the current counters.
func (s *Subscriber[T]) Stats() SubscriberStats {
	return SubscriberStats{
		Received:   s.received.Load(),
		Delivered:  s.delivered.Load(),
		Overflowed: s.overflowed.Load(),
		Dropped:    s.dropped.Load(),
		Panicked:   s.panicked.Load(),
		Queued:     s.queue.Len(),
	}
}

// enqueue runs on the publisher's goroutine.
func (s *Subscriber[T]) enqueue(msg *messages.Message[T]) {
	if s.closed.Load() {
		return
	}
	s.received.Add(1)
	if !s.sched.Running() {
		s.dropped.Add(1)
		return
	}

	if s.dropWhenFull {
		if !s.queue.Offer(msg, s.pushTimeout) {
			s.dropped.Add(1)
			s.logger.Debug("queue full, message dropped", slog.String("message", msg.ID().String()))
			return
		}
	} else if !s.queue.Push(msg, s.pushTimeout) {
		s.overflowed.Add(1)
		s.logger.Debug("queue over capacity",
			slog.Int("capacity", s.queue.Cap()),
			slog.Int("queued", s.queue.Len()),
		)
	}

	s.sched.Submit(scheduler.NewTask(s.id, s.run), s.Priority())
}

// deliver runs on the scheduler's worker goroutine.
func (s *Subscriber[T]) deliver(ctx context.Context) {
	if s.closed.Load() {
		return
	}
	msg, ok := s.queue.Pop()
	if !ok {
		return
	}

	recovered, stack := stdx.Safely(func() { s.handler(ctx, msg) })
	if recovered != nil {
		s.panicked.Add(1)
		s.logger.Error("handler panicked",
			slog.String("message", msg.ID().String()),
			slogx.Panic(recovered, stack),
		)
		return
	}
	s.delivered.Add(1)
}

// binding is what has to be undone when a subscriber goes away. It must not refer
// to the subscriber itself.
type binding[T any] struct {
	channel *broker.Channel[T]
	sched   *scheduler.Scheduler
	id      uuid.UUID
}

// release unregisters first so no new deliveries get queued, then cancels the
// queued ones.
func (b binding[T]) release() {
	b.channel.RemoveListener(b.id)
	b.sched.RemoveTask(b.id)
}
