package hoot

import (
	"fmt"
	"slices"

	"github.com/casualjim/hoot/broker"
	"github.com/casualjim/hoot/messages"
	"github.com/fogfish/opts"
	"github.com/tidwall/sjson"
)

type publisherConfig struct {
	sender string
	meta   string
}

// PublisherOption configures a Publisher.
type PublisherOption = opts.Option[publisherConfig]

// Sender stamps every message from the publisher with a sender name.
var Sender = opts.ForName[publisherConfig, string]("sender")

// Meta adds value at the sjson path to the metadata of every message from the
// publisher.
func Meta(path string, value any) PublisherOption {
	return opts.Type[publisherConfig](func(c *publisherConfig) error {
		raw, err := sjson.Set(c.meta, path, value)
		if err != nil {
			return fmt.Errorf("publisher meta %q: %w", path, err)
		}
		c.meta = raw
		return nil
	})
}

// Publisher sends messages of type T to one channel.
type Publisher[T any] struct {
	channel *broker.Channel[T]
	header  []messages.Option
}

// NewPublisher creates a publisher for topic on bus.
func NewPublisher[T any](bus *Bus, topic string, options ...PublisherOption) (*Publisher[T], error) {
	return PublisherFor(Channel[T](bus, topic), options...)
}

// PublisherFor creates a publisher bound to an existing channel.
func PublisherFor[T any](ch *broker.Channel[T], options ...PublisherOption) (*Publisher[T], error) {
	if ch == nil {
		return nil, ErrUnbound
	}
	var cfg publisherConfig
	if err := opts.Apply(&cfg, options); err != nil {
		return nil, err
	}

	p := &Publisher[T]{channel: ch}
	if cfg.sender != "" {
		p.header = append(p.header, messages.Sender(cfg.sender))
	}
	if cfg.meta != "" {
		p.header = append(p.header, messages.RawMeta(cfg.meta))
	}
	return p, nil
}

// Send publishes payload. Listeners run before Send returns, but subscriber
// handlers run later on the scheduler. Sending to a topic without subscribers
// succeeds and does nothing.
func (p *Publisher[T]) Send(payload T) error {
	if p == nil || p.channel == nil {
		return ErrUnbound
	}
	return p.channel.Push(payload, p.header...)
}

// SendWith publishes payload with extra message options applied after the
// publisher's own.
func (p *Publisher[T]) SendWith(payload T, options ...messages.Option) error {
	if p == nil || p.channel == nil {
		return ErrUnbound
	}
	return p.channel.Push(payload, slices.Concat(p.header, options)...)
}

// Topic returns the topic of the bound channel.
func (p *Publisher[T]) Topic() string {
	return p.channel.Topic()
}

// Channel returns the bound channel.
func (p *Publisher[T]) Channel() *broker.Channel[T] {
	return p.channel
}
