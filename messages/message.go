package messages

import (
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/hoot/pkg/uuidx"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Header is the metadata shared by every message regardless of payload type.
type Header struct {
	ID        uuid.UUID
	Topic     string
	Sender    string
	Timestamp strfmt.DateTime
	Meta      gjson.Result
}

// Option configures the header of a message under construction.
type Option = opts.Option[Header]

// Sender sets the name of the publisher.
var Sender = opts.ForName[Header, string]("Sender")

// At overrides the creation timestamp.
func At(ts time.Time) Option {
	return opts.Type[Header](func(h *Header) error {
		h.Timestamp = strfmt.DateTime(ts)
		return nil
	})
}

// Meta sets value at the sjson path in the message metadata.
func Meta(path string, value any) Option {
	return opts.Type[Header](func(h *Header) error {
		raw, err := sjson.Set(h.Meta.Raw, path, value)
		if err != nil {
			return fmt.Errorf("set meta %q: %w", path, err)
		}
		h.Meta = gjson.Parse(raw)
		return nil
	})
}

// RawMeta replaces the message metadata with the JSON object raw.
func RawMeta(raw string) Option {
	return opts.Type[Header](func(h *Header) error {
		if raw == "" {
			h.Meta = gjson.Result{}
			return nil
		}
		if !gjson.Valid(raw) {
			return errors.New("meta is not valid JSON")
		}
		meta := gjson.Parse(raw)
		if !meta.IsObject() {
			return errors.New("meta must be a JSON object")
		}
		h.Meta = meta
		return nil
	})
}

// Message is an immutable published value together with its header.
type Message[T any] struct {
	header  Header
	payload T
}

// New builds a message for topic.
func New[T any](topic string, payload T, options ...Option) (*Message[T], error) {
	header := Header{
		ID:        uuidx.New(),
		Topic:     topic,
		Timestamp: strfmt.DateTime(time.Now()),
	}
	if err := opts.Apply(&header, options); err != nil {
		return nil, err
	}
	return &Message[T]{header: header, payload: payload}, nil
}

// ID returns the unique message id.
func (m *Message[T]) ID() uuid.UUID { return m.header.ID }

// Topic returns the topic the message was published on.
func (m *Message[T]) Topic() string { return m.header.Topic }

// Sender returns the publisher name, if one was set.
func (m *Message[T]) Sender() string { return m.header.Sender }

// Timestamp returns the creation time.
func (m *Message[T]) Timestamp() strfmt.DateTime { return m.header.Timestamp }

// Meta returns the metadata document. It is the zero gjson.Result when unset.
func (m *Message[T]) Meta() gjson.Result { return m.header.Meta }

// Header returns a copy of the header.
func (m *Message[T]) Header() Header { return m.header }

// Payload returns the published value.
func (m *Message[T]) Payload() T { return m.payload }

type wireMessage[T any] struct {
	ID        uuid.UUID       `json:"id"`
	Topic     string          `json:"topic"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	Payload   T               `json:"payload"`
}

// MarshalJSON renders the header fields next to the payload.
func (m *Message[T]) MarshalJSON() ([]byte, error) {
	w := wireMessage[T]{
		ID:        m.header.ID,
		Topic:     m.header.Topic,
		Sender:    m.header.Sender,
		Timestamp: m.header.Timestamp,
		Payload:   m.payload,
	}
	if m.header.Meta.Raw != "" {
		w.Meta = json.RawMessage(m.header.Meta.Raw)
	}
	return json.Marshal(w)
}

// String implements fmt.Stringer for log lines.
func (m *Message[T]) String() string {
	return fmt.Sprintf("%s@%s(%v)", m.header.Topic, uuidx.Short(m.header.ID), m.payload)
}
