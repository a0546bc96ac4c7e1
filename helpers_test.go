package hoot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/pkg/uuidx"
	"github.com/casualjim/hoot/scheduler"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	bus := New(WithConfig(cfg))
	t.Cleanup(bus.Close)
	return bus
}

func waitIdle(t *testing.T, bus *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Scheduler().WaitIdle(ctx))
}

// holdWorker parks the scheduler worker on a RealTime task until the returned
// release func is called, so tests can observe what is queued.
func holdWorker(t *testing.T, bus *Bus) (release func()) {
	t.Helper()
	entered, gate := make(chan struct{}), make(chan struct{})
	bus.Scheduler().Submit(scheduler.NewTask(uuidx.New(), func(context.Context) {
		close(entered)
		<-gate
	}), scheduler.RealTime)

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up the hold task")
	}
	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return release
}

// inbox records what a handler received.
type inbox[T any] struct {
	mu   sync.Mutex
	msgs []*messages.Message[T]
}

func (b *inbox[T]) handler() Handler[T] {
	return func(_ context.Context, msg *messages.Message[T]) {
		b.mu.Lock()
		b.msgs = append(b.msgs, msg)
		b.mu.Unlock()
	}
}

func (b *inbox[T]) payloads() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]T, 0, len(b.msgs))
	for _, m := range b.msgs {
		out = append(out, m.Payload())
	}
	return out
}

func (b *inbox[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}
