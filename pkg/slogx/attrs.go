package slogx

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const (
	// KeyLoggerName is the attribute key carrying the component name.
	KeyLoggerName = "logger"
	// KeyTopic is the attribute key for a channel topic.
	KeyTopic = "topic"
	// KeyPriority is the attribute key for a scheduling priority.
	KeyPriority = "priority"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Panic groups a recovered panic value and its stack under the "panic" key.
func Panic(recovered any, stack []byte) slog.Attr {
	return slog.Group("panic",
		slog.String("value", fmt.Sprint(recovered)),
		slog.String("stack", string(stack)),
	)
}

// Stringer creates a slog.Attr with the provided key and the string representation
// of the given fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName creates a slog.Attr with the provided logger name.
// The attribute key is defined by KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Topic creates a slog.Attr for a channel topic.
func Topic(topic string) slog.Attr {
	return slog.String(KeyTopic, topic)
}

// Priority creates a slog.Attr for anything that prints as a priority level.
func Priority(p fmt.Stringer) slog.Attr {
	return Stringer(KeyPriority, p)
}

// ID creates a slog.Attr for an identity token such as a subscriber or task owner.
func ID(key string, id uuid.UUID) slog.Attr {
	return slog.String(key, id.String())
}
