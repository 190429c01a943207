// Package mqtt provides the lock controller's MQTT transport: lock state,
// log reports and lifecycle events out, unlock commands in.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/lock-controller/internal/logic"
)

// Topics holds the topics derived from a single prefix.
type Topics struct {
	State  string // retained lock state
	Log    string // log report chunks
	Unlock string // incoming unlock commands
	System string // lifecycle events
}

// NewTopics derives the topic set under prefix.
func NewTopics(prefix string) Topics {
	return Topics{
		State:  prefix + "/state",
		Log:    prefix + "/log",
		Unlock: prefix + "/unlock",
		System: prefix + "/system",
	}
}

// Publisher publishes lock events to MQTT.
type Publisher interface {
	// PublishState sends the current lock state. Failures are returned but
	// must not stop the caller.
	PublishState(event StateEvent) error

	// PublishLog sends a log report as an ordered series of chunks.
	PublishLog(chunks []string) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Command is an unlock request received from the broker.
type Command struct {
	Payload  []byte
	Received time.Time
}

// StateEvent is a lock state change ready for publication.
type StateEvent struct {
	Timestamp time.Time
	State     logic.State
	Override  bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the JSON envelope published on the state topic.
type Payload struct {
	Lock LockPayload `json:"lock"`
}

// LockPayload contains the lock state details.
type LockPayload struct {
	Timestamp      string `json:"timestamp"`
	State          string `json:"state"`
	Base           string `json:"base"`
	UpdatingSecret bool   `json:"updating_secret"`
	Override       bool   `json:"override"`
}

// FormatStatePayload creates the JSON payload for a lock state change.
func FormatStatePayload(event StateEvent) ([]byte, error) {
	return json.Marshal(Payload{
		Lock: LockPayload{
			Timestamp:      event.Timestamp.UTC().Format(time.RFC3339),
			State:          event.State.String(),
			Base:           string(event.State.Base),
			UpdatingSecret: event.State.UpdatingSecret,
			Override:       event.Override,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events that
// don't carry a full status snapshot (will message, reconnect).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// FormatWillPayload creates the last-will payload registered at connect time.
func FormatWillPayload(at time.Time) []byte {
	data, _ := FormatSystemPayload(SystemEvent{
		Timestamp: at,
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	return data
}

// TruncateCommand limits an incoming unlock payload to limit bytes, the
// size of a single packet. The result never aliases b.
func TruncateCommand(b []byte, limit int) []byte {
	if limit > 0 && len(b) > limit {
		b = b[:limit]
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
