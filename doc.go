/*
Package hoot is an in-process publish/subscribe bus with a priority scheduler. It
decouples producers and consumers of typed events inside a single process, in the
style of the message passing found in robotics and control middleware.

A publisher's Send fans a message out to every subscriber of the topic on the
publisher's goroutine, but each subscriber only buffers the message and schedules a
task. The handler runs later on the scheduler's worker goroutine, so a slow
consumer never runs on the producer's stack.

# Basic Usage

	bus := hoot.New()
	defer bus.Close()

	pub, err := hoot.NewPublisher[float64](bus, "speed", hoot.Sender("odometry"))
	if err != nil {
		return err
	}

	sub, err := hoot.NewSubscriber[float64](bus, "speed", hoot.AtPriority(scheduler.High))
	if err != nil {
		return err
	}
	defer sub.Close()

	err = sub.Bind(func(ctx context.Context, msg *messages.Message[float64]) {
		fmt.Println("speed", msg.Payload())
	})

	_ = pub.Send(3.5)

# Architecture

The package composes the building blocks from its subpackages:

1. Channels (broker)
  - One channel per (message type, topic), created on first use
  - Synchronous, enqueue-only fan-out to listeners in registration order

2. Subscriber queues (broker)
  - Bounded per-subscriber buffer; a full queue makes the publisher wait up to
    PushTimeout, then the message is queued anyway unless DropWhenFull is set

3. Scheduler (scheduler)
  - One worker goroutine, strict priority (RealTime, High, Normal, Low), FIFO within
    a priority
  - Panicking handlers are logged and counted; the worker keeps going

# Lifetimes

Closing a subscriber first unregisters its listener and then cancels its queued
deliveries, so nothing runs for it afterwards except a delivery that was already
executing. Listeners and tasks hold the subscriber only weakly; a bound subscriber
that is garbage collected without Close is unregistered by a runtime cleanup.

Delivery is best effort and never leaves the process. Messages published while
nobody is subscribed are dropped.
*/
package hoot
