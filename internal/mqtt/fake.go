package mqtt

import "time"

// FakeSubscriber delivers scripted messages for tests.
type FakeSubscriber struct {
	msgs chan Message

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakeSubscriber creates a FakeSubscriber whose channel buffers up to capacity messages.
func NewFakeSubscriber(capacity int) *FakeSubscriber {
	return &FakeSubscriber{msgs: make(chan Message, capacity)}
}

// Deliver queues a message as if it had been received from the broker.
// Blocks if the buffer is full.
func (f *FakeSubscriber) Deliver(msg Message) {
	f.msgs <- msg
}

// DeliverPayload queues a payload on DefaultTopic received at t.
func (f *FakeSubscriber) DeliverPayload(payload string, t time.Time) {
	f.Deliver(Message{Topic: DefaultTopic, Payload: []byte(payload), Received: t})
}

// Messages returns the delivery channel.
func (f *FakeSubscriber) Messages() <-chan Message {
	return f.msgs
}

// Close marks the subscriber as closed and closes the delivery channel.
// Deliver must not be called afterwards.
func (f *FakeSubscriber) Close() error {
	if !f.Closed {
		f.Closed = true
		close(f.msgs)
	}
	return nil
}

// IsConnected reports whether the fake subscriber is "connected".
func (f *FakeSubscriber) IsConnected() bool {
	return f.Connected
}
