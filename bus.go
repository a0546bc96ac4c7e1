package hoot

import (
	"log/slog"
	"sync"

	"github.com/casualjim/hoot/broker"
	"github.com/casualjim/hoot/internal/registry"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/scheduler"
	"github.com/fogfish/opts"
)

// BusOption configures a Bus.
type BusOption = opts.Option[Bus]

var (
	// WithScheduler makes the bus deliver on s instead of creating its own scheduler.
	// A borrowed scheduler is not shut down by Bus.Close.
	WithScheduler = opts.ForName[Bus, *scheduler.Scheduler]("sched")
	// WithConfig replaces the bus defaults.
	WithConfig = opts.ForName[Bus, Config]("config")
)

// Default returns the lazily created process-wide bus. It delivers on
// scheduler.Global and takes its defaults from LoadConfig.
var Default = sync.OnceValue(func() *Bus {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Warn("invalid bus configuration, using defaults for the offending keys",
			slogx.LoggerName("bus"), slogx.Error(err))
	}
	return New(WithConfig(cfg), WithScheduler(scheduler.Global()))
})

// Bus is the context publishers and subscribers are created in: it owns the topic
// registries, one per message type, and the scheduler deliveries run on.
type Bus struct {
	config    Config
	sched     *scheduler.Scheduler
	ownsSched bool
	channels  *registry.Directory
	closeOnce sync.Once
}

// New creates a bus. Without WithScheduler the bus starts and owns a scheduler.
func New(options ...BusOption) *Bus {
	b := &Bus{
		config:   DefaultConfig(),
		channels: registry.New(),
	}
	if err := opts.Apply(b, options); err != nil {
		panic(err)
	}
	if b.sched == nil {
		b.sched = scheduler.New(
			scheduler.Name("bus"),
			scheduler.PollInterval(b.config.PollInterval),
		)
		b.ownsSched = true
	}
	return b
}

// Scheduler returns the scheduler deliveries run on.
func (b *Bus) Scheduler() *scheduler.Scheduler {
	return b.sched
}

// Config returns the bus defaults.
func (b *Bus) Config() Config {
	return b.config
}

// Close shuts down the scheduler if the bus created it. Afterwards published
// messages are no longer delivered.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		if b.ownsSched {
			b.sched.Shutdown()
		}
	})
}

func registryOf[T any](b *Bus) *broker.Registry[T] {
	reg, _ := registry.GetOrAdd[T](b.channels, broker.NewRegistry[T])
	return reg
}

// Channel returns the channel for messages of type T on topic, creating it on first
// use. The same (T, topic) pair always yields the same channel on a bus.
func Channel[T any](b *Bus, topic string) *broker.Channel[T] {
	return registryOf[T](b).Get(topic)
}

// Topics lists the topics carrying messages of type T, in creation order.
func Topics[T any](b *Bus) []string {
	reg, ok := registry.Get[T, *broker.Registry[T]](b.channels)
	if !ok {
		return nil
	}
	return reg.Topics()
}
