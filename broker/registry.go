package broker

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry maps topics to channels of one message type. Get is the only place a
// channel is created, so a topic never has two channels.
type Registry[T any] struct {
	mu       sync.Mutex
	channels *orderedmap.OrderedMap[string, *Channel[T]]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		channels: orderedmap.New[string, *Channel[T]](),
	}
}

// Get returns the channel for topic, creating it on first use.
func (r *Registry[T]) Get(topic string) *Channel[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels.Get(topic); ok {
		return ch
	}
	ch := NewChannel[T](topic)
	r.channels.Set(topic, ch)
	return ch
}

// Lookup returns the channel for topic without creating it.
func (r *Registry[T]) Lookup(topic string) (*Channel[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels.Get(topic)
}

// Topics lists known topics in the order they were first requested.
func (r *Registry[T]) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	topics := make([]string, 0, r.channels.Len())
	for pair := r.channels.Oldest(); pair != nil; pair = pair.Next() {
		topics = append(topics, pair.Key)
	}
	return topics
}

// Len returns the number of topics.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels.Len()
}
