package broker

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/pkg/stdx"
	"github.com/casualjim/hoot/pkg/uuidx"
	"github.com/google/uuid"
)

// Enqueuer receives a message on the publisher's goroutine. Implementations must
// only hand the message off (buffer it, schedule work) and return promptly: a slow
// Enqueuer stalls every publisher on the channel.
type Enqueuer[T any] func(msg *messages.Message[T])

// Listener is a registration on a Channel. Two listeners are the same registration
// when their IDs are equal.
type Listener[T any] struct {
	ID      uuid.UUID
	Enqueue Enqueuer[T]
}

// NewListener creates a listener with a fresh identity.
func NewListener[T any](enqueue Enqueuer[T]) Listener[T] {
	return Listener[T]{ID: uuidx.New(), Enqueue: enqueue}
}

// Channel is a named multicast endpoint for messages of type T.
type Channel[T any] struct {
	topic     string
	mu        sync.RWMutex
	listeners []Listener[T]
	logger    *slog.Logger
}

// NewChannel creates a channel without listeners. Most callers should obtain
// channels from a Registry so that a topic maps to exactly one channel.
func NewChannel[T any](topic string) *Channel[T] {
	return &Channel[T]{
		topic:  topic,
		logger: slog.Default().With(slogx.LoggerName("channel"), slogx.Topic(topic)),
	}
}

// Topic returns the channel name.
func (c *Channel[T]) Topic() string {
	return c.topic
}

// Len returns the number of registered listeners.
func (c *Channel[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners)
}

// AddListener appends l. Registering the same listener twice delivers twice.
func (c *Channel[T]) AddListener(l Listener[T]) {
	if l.Enqueue == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// RemoveListener removes every registration with id and reports how many there were.
func (c *Channel[T]) RemoveListener(id uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := len(c.listeners)
	c.listeners = slices.DeleteFunc(c.listeners, func(l Listener[T]) bool { return l.ID == id })
	return before - len(c.listeners)
}

// Push wraps payload in a message and dispatches it to every listener. With no
// listeners the message is simply dropped. The only error is an invalid option.
func (c *Channel[T]) Push(payload T, options ...messages.Option) error {
	msg, err := messages.New(c.topic, payload, options...)
	if err != nil {
		return err
	}
	c.Dispatch(msg)
	return nil
}

// Dispatch hands msg to the listeners registered when the call starts, in
// registration order. A panicking listener is logged and skipped.
func (c *Channel[T]) Dispatch(msg *messages.Message[T]) {
	c.mu.RLock()
	snapshot := slices.Clone(c.listeners)
	c.mu.RUnlock()

	for _, l := range snapshot {
		if recovered, stack := stdx.Safely(func() { l.Enqueue(msg) }); recovered != nil {
			c.logger.Error("listener panicked",
				slogx.ID("listener", l.ID),
				slog.String("message", msg.ID().String()),
				slogx.Panic(recovered, stack),
			)
		}
	}
}
