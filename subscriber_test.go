package hoot

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriberOptions(t *testing.T) {
	bus := newTestBus(t)

	t.Run("defaults come from the bus", func(t *testing.T) {
		sub, err := NewSubscriber[int](bus, "defaults")
		require.NoError(t, err)
		defer sub.Close()
		assert.Equal(t, scheduler.Normal, sub.Priority())
		assert.Equal(t, "defaults", sub.Topic())
		assert.Len(t, sub.Name(), 8)
		assert.False(t, sub.Bound())
	})

	t.Run("options override", func(t *testing.T) {
		sub, err := NewSubscriber[int](bus, "custom",
			SubscriberName("logger"),
			AtPriority(scheduler.Low),
			Capacity(4),
			PushTimeout(time.Millisecond),
		)
		require.NoError(t, err)
		defer sub.Close()
		assert.Equal(t, "logger", sub.Name())
		assert.Equal(t, scheduler.Low, sub.Priority())
		assert.Equal(t, 4, sub.queue.Cap())
		assert.Equal(t, time.Millisecond, sub.pushTimeout)
	})

	t.Run("invalid priority", func(t *testing.T) {
		_, err := NewSubscriber[int](bus, "bad", AtPriority(scheduler.Priority(12)))
		assert.Error(t, err)
	})

	t.Run("negative push timeout", func(t *testing.T) {
		_, err := NewSubscriber[int](bus, "bad", PushTimeout(-time.Second))
		assert.Error(t, err)
	})

	t.Run("nil channel", func(t *testing.T) {
		_, err := SubscriberFor[int](bus, nil)
		assert.ErrorIs(t, err, ErrUnbound)
	})
}

func TestSubscriberBind(t *testing.T) {
	t.Run("nil handler", func(t *testing.T) {
		bus := newTestBus(t)
		sub, err := NewSubscriber[int](bus, "t")
		require.NoError(t, err)
		defer sub.Close()
		assert.ErrorIs(t, sub.Bind(nil), ErrNilHandler)
		assert.False(t, sub.Bound())
	})

	t.Run("bind is idempotent", func(t *testing.T) {
		bus := newTestBus(t)
		pub, err := NewPublisher[int](bus, "t")
		require.NoError(t, err)
		sub, err := NewSubscriber[int](bus, "t")
		require.NoError(t, err)
		defer sub.Close()

		first, second := &inbox[int]{}, &inbox[int]{}
		require.NoError(t, sub.Bind(first.handler()))
		require.NoError(t, sub.Bind(second.handler()))
		assert.True(t, sub.Bound())
		assert.Equal(t, 1, pub.Channel().Len())

		require.NoError(t, pub.Send(1))
		waitIdle(t, bus)
		assert.Equal(t, []int{1}, first.payloads())
		assert.Empty(t, second.payloads())
	})

	t.Run("bind after close", func(t *testing.T) {
		bus := newTestBus(t)
		sub, err := NewSubscriber[int](bus, "t")
		require.NoError(t, err)
		sub.Close()
		assert.ErrorIs(t, sub.Bind((&inbox[int]{}).handler()), ErrClosed)
	})

	t.Run("handler runs on the scheduler, not the publisher", func(t *testing.T) {
		bus := newTestBus(t)
		pub, err := NewPublisher[int](bus, "t")
		require.NoError(t, err)
		sub, err := NewSubscriber[int](bus, "t")
		require.NoError(t, err)
		defer sub.Close()

		release := holdWorker(t, bus)
		var ran atomic.Bool
		require.NoError(t, sub.Bind(func(context.Context, *messages.Message[int]) { ran.Store(true) }))
		require.NoError(t, pub.Send(1))

		assert.False(t, ran.Load(), "send returned before the handler ran")
		assert.Equal(t, 1, sub.Stats().Queued)
		release()
		waitIdle(t, bus)
		assert.True(t, ran.Load())
	})
}

func TestSubscriberClose(t *testing.T) {
	t.Run("queued delivery never runs after close", func(t *testing.T) {
		bus := newTestBus(t)
		pub, err := NewPublisher[float64](bus, "speed")
		require.NoError(t, err)
		sub, err := NewSubscriber[float64](bus, "speed")
		require.NoError(t, err)

		var invoked atomic.Bool
		require.NoError(t, sub.Bind(func(context.Context, *messages.Message[float64]) { invoked.Store(true) }))

		release := holdWorker(t, bus)
		require.NoError(t, pub.Send(1.5))
		assert.Equal(t, 1, bus.Scheduler().Pending())

		sub.Close()
		assert.Equal(t, 0, bus.Scheduler().Pending(), "close cancels queued deliveries")
		assert.Equal(t, 0, pub.Channel().Len(), "close unregisters the listener")
		assert.Equal(t, 0, sub.Stats().Queued)

		require.NoError(t, pub.Send(2.5))
		release()
		waitIdle(t, bus)
		assert.False(t, invoked.Load())
		assert.Equal(t, uint64(1), bus.Scheduler().Stats().Cancelled)
	})

	t.Run("close is idempotent and leaves others alone", func(t *testing.T) {
		bus := newTestBus(t)
		pub, err := NewPublisher[int](bus, "t")
		require.NoError(t, err)
		closing, err := NewSubscriber[int](bus, "t")
		require.NoError(t, err)
		staying, err := NewSubscriber[int](bus, "t")
		require.NoError(t, err)
		defer staying.Close()

		box := &inbox[int]{}
		require.NoError(t, closing.Bind((&inbox[int]{}).handler()))
		require.NoError(t, staying.Bind(box.handler()))

		closing.Close()
		assert.NotPanics(t, closing.Close)
		assert.False(t, closing.Bound())

		require.NoError(t, pub.Send(7))
		waitIdle(t, bus)
		assert.Equal(t, []int{7}, box.payloads())
	})

	t.Run("close without bind", func(t *testing.T) {
		bus := newTestBus(t)
		sub, err := NewSubscriber[int](bus, "t")
		require.NoError(t, err)
		assert.NotPanics(t, sub.Close)
	})

	t.Run("collected subscriber is unregistered", func(t *testing.T) {
		bus := newTestBus(t)
		ch := Channel[int](bus, "gc")
		func() {
			sub, err := NewSubscriber[int](bus, "gc")
			require.NoError(t, err)
			require.NoError(t, sub.Bind(func(context.Context, *messages.Message[int]) {}))
		}()
		assert.Eventually(t, func() bool {
			runtime.GC()
			return ch.Len() == 0
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestSubscriberBackpressure(t *testing.T) {
	t.Run("soft capacity queues past the bound", func(t *testing.T) {
		bus := newTestBus(t)
		pub, err := NewPublisher[int](bus, "bp")
		require.NoError(t, err)
		sub, err := NewSubscriber[int](bus, "bp", Capacity(2), PushTimeout(0))
		require.NoError(t, err)
		defer sub.Close()
		box := &inbox[int]{}
		require.NoError(t, sub.Bind(box.handler()))

		release := holdWorker(t, bus)
		for i := 1; i <= 3; i++ {
			require.NoError(t, pub.Send(i))
		}
		stats := sub.Stats()
		assert.Equal(t, 3, stats.Queued)
		assert.Equal(t, uint64(1), stats.Overflowed)

		release()
		waitIdle(t, bus)
		assert.Equal(t, []int{1, 2, 3}, box.payloads())
		assert.Equal(t, uint64(3), sub.Stats().Delivered)
	})

	t.Run("drop when full enforces the bound", func(t *testing.T) {
		bus := newTestBus(t)
		pub, err := NewPublisher[int](bus, "bp")
		require.NoError(t, err)
		sub, err := NewSubscriber[int](bus, "bp", Capacity(2), PushTimeout(0), DropWhenFull())
		require.NoError(t, err)
		defer sub.Close()
		box := &inbox[int]{}
		require.NoError(t, sub.Bind(box.handler()))

		release := holdWorker(t, bus)
		for i := 1; i <= 3; i++ {
			require.NoError(t, pub.Send(i))
		}
		assert.Equal(t, 2, sub.Stats().Queued)
		assert.Equal(t, uint64(1), sub.Stats().Dropped)
		assert.Equal(t, 2, bus.Scheduler().Pending(), "no task for a dropped message")

		release()
		waitIdle(t, bus)
		assert.Equal(t, []int{1, 2}, box.payloads())
	})

	t.Run("stopped scheduler drops at the listener", func(t *testing.T) {
		bus := newTestBus(t)
		pub, err := NewPublisher[int](bus, "bp")
		require.NoError(t, err)
		sub, err := NewSubscriber[int](bus, "bp")
		require.NoError(t, err)
		defer sub.Close()
		require.NoError(t, sub.Bind((&inbox[int]{}).handler()))

		bus.Close()
		require.NoError(t, pub.Send(1))
		stats := sub.Stats()
		assert.Equal(t, uint64(1), stats.Received)
		assert.Equal(t, uint64(1), stats.Dropped)
		assert.Equal(t, 0, stats.Queued)
	})
}

func TestSubscriberHandlerPanic(t *testing.T) {
	bus := newTestBus(t)
	pub, err := NewPublisher[string](bus, "fragile")
	require.NoError(t, err)

	bad, err := NewSubscriber[string](bus, "fragile")
	require.NoError(t, err)
	defer bad.Close()
	good, err := NewSubscriber[string](bus, "fragile")
	require.NoError(t, err)
	defer good.Close()

	require.NoError(t, bad.Bind(func(context.Context, *messages.Message[string]) { panic("bad subscriber") }))
	box := &inbox[string]{}
	require.NoError(t, good.Bind(box.handler()))

	require.NoError(t, pub.Send("a"))
	require.NoError(t, pub.Send("b"))
	waitIdle(t, bus)

	assert.Equal(t, []string{"a", "b"}, box.payloads())
	assert.Equal(t, uint64(2), bad.Stats().Panicked)
	assert.Equal(t, uint64(0), bad.Stats().Delivered)
	assert.Equal(t, uint64(0), bus.Scheduler().Stats().Panicked, "subscriber contains its own handler panics")
	assert.True(t, bus.Scheduler().Running())
}

func TestSubscriberPriority(t *testing.T) {
	t.Run("higher priority subscriber runs first", func(t *testing.T) {
		bus := newTestBus(t)
		pub, err := NewPublisher[int](bus, "prio")
		require.NoError(t, err)

		var mu sync.Mutex
		var order []string
		record := func(name string) Handler[int] {
			return func(context.Context, *messages.Message[int]) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
			}
		}

		// registered first, so its listener enqueues first
		low, err := NewSubscriber[int](bus, "prio", AtPriority(scheduler.Low))
		require.NoError(t, err)
		defer low.Close()
		high, err := NewSubscriber[int](bus, "prio", AtPriority(scheduler.High))
		require.NoError(t, err)
		defer high.Close()
		require.NoError(t, low.Bind(record("low")))
		require.NoError(t, high.Bind(record("high")))

		release := holdWorker(t, bus)
		require.NoError(t, pub.Send(1))
		release()
		waitIdle(t, bus)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"high", "low"}, order)
	})

	t.Run("set priority affects only new deliveries", func(t *testing.T) {
		bus := newTestBus(t)
		pub, err := NewPublisher[int](bus, "prio")
		require.NoError(t, err)
		sub, err := NewSubscriber[int](bus, "prio", AtPriority(scheduler.Low))
		require.NoError(t, err)
		defer sub.Close()
		box := &inbox[int]{}
		require.NoError(t, sub.Bind(box.handler()))

		s := bus.Scheduler()
		release := holdWorker(t, bus)
		require.NoError(t, pub.Send(1))
		sub.SetPriority(scheduler.RealTime)
		assert.Equal(t, scheduler.RealTime, sub.Priority())
		require.NoError(t, pub.Send(2))

		assert.Equal(t, 2, s.Pending())
		release()
		waitIdle(t, bus)
		// each delivery pops the subscriber queue in order, whatever its task priority
		assert.Equal(t, []int{1, 2}, box.payloads())
	})
}
