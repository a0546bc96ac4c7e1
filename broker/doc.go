// Package broker implements the topic-addressed side of the bus: channels that fan a
// message out to their listeners, the registry that guarantees one channel per
// topic, and the bounded queue each subscriber buffers into.
//
// Design decisions:
//   - Synchronous fan-out: Channel.Push calls every listener on the publisher's
//     goroutine, in registration order
//   - Enqueue-only listeners: a Listener's Enqueuer must only buffer the message;
//     anything slow belongs in the task it schedules
//   - Identity, not ownership: listeners are removed by ID and never keep their
//     subscriber alive
//   - Soft capacity: MessageQueue.Push never drops, MessageQueue.Offer does
//
// Interface hierarchy:
//   - Registry: topic directory for one message type
//     └── Channel: named multicast endpoint
//     └── Listener: registration invoked for every message on the channel
//   - MessageQueue: per-subscriber buffer between publisher and scheduler
//
// Example usage:
//
//	reg := broker.NewRegistry[float64]()
//	ch := reg.Get("speed")
//
//	q := broker.NewMessageQueue[float64](8)
//	ch.AddListener(broker.NewListener(func(msg *messages.Message[float64]) {
//	    q.Push(msg, 20*time.Millisecond)
//	}))
//
//	if err := ch.Push(3.5); err != nil {
//	    return err
//	}
//	msg, _ := q.Pop()
package broker
