// Package messages defines the envelope that carries a published value through the
// bus.
//
// A Message is built once per publish and then shared by pointer between every
// subscriber that receives it. It is immutable after construction: all fields are
// unexported and exposed through accessors, so handing the same *Message to many
// goroutines needs no copying and no locking.
//
// Besides the payload, every message carries a header:
//   - ID: a version 7 UUID, so messages sort by creation time
//   - Topic: the channel topic it was published on
//   - Sender: optional free-form publisher name
//   - Timestamp: creation time as strfmt.DateTime
//   - Meta: optional JSON metadata, read with gjson paths
//
// Example usage:
//
//	msg, err := messages.New("speed", 3.5,
//	    messages.Sender("wheel-odometry"),
//	    messages.Meta("unit", "m/s"),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(msg.Payload(), msg.Meta().Get("unit").String())
package messages
