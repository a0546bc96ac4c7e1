package hoot

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/casualjim/hoot/broker"
	"github.com/casualjim/hoot/scheduler"
)

// Environment variables read by LoadConfig.
const (
	EnvQueueCapacity   = "HOOT_QUEUE_CAPACITY"
	EnvPushTimeout     = "HOOT_PUSH_TIMEOUT"
	EnvPollInterval    = "HOOT_POLL_INTERVAL"
	EnvDefaultPriority = "HOOT_DEFAULT_PRIORITY"
)

// DefaultPushTimeout is how long a listener waits for room in a full subscriber
// queue before inserting past capacity.
const DefaultPushTimeout = 20 * time.Millisecond

// Config holds the bus wide defaults applied to new subscribers and to a scheduler
// the bus creates for itself.
type Config struct {
	// QueueCapacity is the soft capacity of each subscriber queue.
	QueueCapacity int
	// PushTimeout bounds the backpressure wait on the publisher's goroutine.
	PushTimeout time.Duration
	// PollInterval is the worker poll interval of an owned scheduler.
	PollInterval time.Duration
	// DefaultPriority is the task priority of subscribers that do not set one.
	DefaultPriority scheduler.Priority
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:   broker.DefaultCapacity,
		PushTimeout:     DefaultPushTimeout,
		PollInterval:    scheduler.DefaultPollInterval,
		DefaultPriority: scheduler.Normal,
	}
}

// LoadConfig starts from DefaultConfig and applies the HOOT_* environment variables.
// Invalid values are reported together and leave the corresponding default in place.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	var err error

	if v, ok := os.LookupEnv(EnvQueueCapacity); ok {
		n, perr := strconv.Atoi(v)
		switch {
		case perr != nil:
			err = errors.Join(err, fmt.Errorf("%s: %w", EnvQueueCapacity, perr))
		case n <= 0:
			err = errors.Join(err, fmt.Errorf("%s: must be positive, got %d", EnvQueueCapacity, n))
		default:
			cfg.QueueCapacity = n
		}
	}

	if v, ok := os.LookupEnv(EnvPushTimeout); ok {
		d, perr := time.ParseDuration(v)
		switch {
		case perr != nil:
			err = errors.Join(err, fmt.Errorf("%s: %w", EnvPushTimeout, perr))
		case d < 0:
			err = errors.Join(err, fmt.Errorf("%s: must not be negative, got %s", EnvPushTimeout, d))
		default:
			cfg.PushTimeout = d
		}
	}

	if v, ok := os.LookupEnv(EnvPollInterval); ok {
		d, perr := time.ParseDuration(v)
		switch {
		case perr != nil:
			err = errors.Join(err, fmt.Errorf("%s: %w", EnvPollInterval, perr))
		case d <= 0:
			err = errors.Join(err, fmt.Errorf("%s: must be positive, got %s", EnvPollInterval, d))
		default:
			cfg.PollInterval = d
		}
	}

	if v, ok := os.LookupEnv(EnvDefaultPriority); ok {
		p, perr := scheduler.ParsePriority(v)
		if perr != nil {
			err = errors.Join(err, fmt.Errorf("%s: %w", EnvDefaultPriority, perr))
		} else {
			cfg.DefaultPriority = p
		}
	}

	return cfg, err
}
