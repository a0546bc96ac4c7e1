package hoot

import "errors"

var (
	// ErrNilHandler is returned by Bind when no handler is given.
	ErrNilHandler = errors.New("hoot: handler is required")
	// ErrClosed is returned when binding a subscriber that was already closed.
	ErrClosed = errors.New("hoot: subscriber is closed")
	// ErrUnbound is returned by publishers and subscribers without a channel.
	ErrUnbound = errors.New("hoot: not bound to a channel")
)
