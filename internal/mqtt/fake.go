package mqtt

import "time"

// FakePublisher records published messages for test assertions and lets
// tests inject unlock commands.
type FakePublisher struct {
	// States contains all lock state events that were published.
	States []StateEvent

	// StatePayloads contains the JSON payloads for state events.
	StatePayloads [][]byte

	// Logs contains each published log report as its chunk list.
	Logs [][]string

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishState and PublishLog.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	commands chan Command
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{commands: make(chan Command, commandBacklog)}
}

// PublishState records the state event.
func (f *FakePublisher) PublishState(event StateEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatStatePayload(event)
	if err != nil {
		return err
	}
	f.States = append(f.States, event)
	f.StatePayloads = append(f.StatePayloads, payload)
	return nil
}

// PublishLog records the log chunks.
func (f *FakePublisher) PublishLog(chunks []string) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Logs = append(f.Logs, append([]string(nil), chunks...))
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Commands returns the channel fed by Send.
func (f *FakePublisher) Commands() <-chan Command {
	return f.commands
}

// Send queues an unlock command as if it had arrived from the broker.
func (f *FakePublisher) Send(payload string) {
	f.commands <- Command{Payload: []byte(payload), Received: time.Now()}
}

// Reset clears recorded messages and injected errors.
func (f *FakePublisher) Reset() {
	f.States = nil
	f.StatePayloads = nil
	f.Logs = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
