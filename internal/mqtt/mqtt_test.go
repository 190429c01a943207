package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/lock-controller/internal/logic"
)

func TestNewTopics(t *testing.T) {
	got := NewTopics("access/front")
	want := Topics{
		State:  "access/front/state",
		Log:    "access/front/log",
		Unlock: "access/front/unlock",
		System: "access/front/system",
	}
	if got != want {
		t.Errorf("NewTopics: got %+v, want %+v", got, want)
	}
}

func TestFormatStatePayloadExactJSON(t *testing.T) {
	event := StateEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		State:     logic.State{Base: logic.BaseUnlocked},
	}

	payload, err := FormatStatePayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"lock":{"timestamp":"2026-02-02T22:18:12Z","state":"UNLOCKED","base":"UNLOCKED","updating_secret":false,"override":false}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatStatePayloadAllStates(t *testing.T) {
	tests := []struct {
		state     logic.State
		override  bool
		wantState string
	}{
		{logic.State{Base: logic.BaseLocked}, false, "LOCKED"},
		{logic.State{Base: logic.BaseUnlocked}, false, "UNLOCKED"},
		{logic.State{Base: logic.BaseOverridden}, true, "OVERRIDDEN"},
		{logic.State{Base: logic.BaseLocked, UpdatingSecret: true}, false, "LOCKED+UPDATE_SECRET"},
		{logic.State{Base: logic.BaseOverridden, UpdatingSecret: true}, true, "OVERRIDDEN+UPDATE_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.wantState, func(t *testing.T) {
			payload, err := FormatStatePayload(StateEvent{Timestamp: time.Now(), State: tt.state, Override: tt.override})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Lock.State != tt.wantState {
				t.Errorf("state: got %s, want %s", parsed.Lock.State, tt.wantState)
			}
			if parsed.Lock.Base != string(tt.state.Base) {
				t.Errorf("base: got %s, want %s", parsed.Lock.Base, tt.state.Base)
			}
			if parsed.Lock.UpdatingSecret != tt.state.UpdatingSecret {
				t.Errorf("updating_secret: got %v", parsed.Lock.UpdatingSecret)
			}
			if parsed.Lock.Override != tt.override {
				t.Errorf("override: got %v", parsed.Lock.Override)
			}
		})
	}
}

func TestFormatStatePayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	event := StateEvent{
		Timestamp: time.Date(2026, 2, 3, 12, 0, 0, 0, loc),
		State:     logic.State{Base: logic.BaseLocked},
	}
	payload, err := FormatStatePayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(payload), `"timestamp":"2026-02-03T10:00:00Z"`) {
		t.Errorf("timestamp not converted to UTC: %s", payload)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not returned verbatim: %s", payload)
	}
}

func TestFormatWillPayload(t *testing.T) {
	payload := FormatWillPayload(time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC))
	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"OFFLINE","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestTruncateCommand(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short", "abc123", 20, "abc123"},
		{"exact", "12345678901234567890", 20, "12345678901234567890"},
		{"long", "123456789012345678901234", 20, "12345678901234567890"},
		{"empty", "", 20, ""},
		{"no limit", "123456789012345678901234", 0, "123456789012345678901234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateCommand([]byte(tt.in), tt.limit)
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateCommandCopies(t *testing.T) {
	in := []byte("abc123")
	got := TruncateCommand(in, 20)
	in[0] = 'X'
	if string(got) != "abc123" {
		t.Errorf("result aliases input: %q", got)
	}
}

func TestFakePublisherRecordsAll(t *testing.T) {
	f := NewFakePublisher()

	if err := f.PublishState(StateEvent{Timestamp: time.Now(), State: logic.State{Base: logic.BaseUnlocked}}); err != nil {
		t.Fatalf("PublishState: %v", err)
	}
	if err := f.PublishLog([]string{"State: LOCKED", "End of log."}); err != nil {
		t.Fatalf("PublishLog: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	if len(f.States) != 1 || f.States[0].State.Base != logic.BaseUnlocked {
		t.Errorf("states: got %+v", f.States)
	}
	if len(f.StatePayloads) != 1 {
		t.Errorf("expected 1 state payload, got %d", len(f.StatePayloads))
	}
	if len(f.Logs) != 1 || len(f.Logs[0]) != 2 {
		t.Errorf("logs: got %+v", f.Logs)
	}
	if len(f.SystemEvents) != 1 || !f.SystemEvents[0].Retained {
		t.Errorf("system events: got %+v", f.SystemEvents)
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated system error")

	if err := f.PublishState(StateEvent{}); err == nil {
		t.Error("expected PublishState error")
	}
	if err := f.PublishLog([]string{"x"}); err == nil {
		t.Error("expected PublishLog error")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(f.States) != 0 || len(f.Logs) != 0 || len(f.SystemEvents) != 0 {
		t.Error("nothing should be recorded on error")
	}
}

func TestFakePublisherCommands(t *testing.T) {
	f := NewFakePublisher()
	f.Send("abc123")

	select {
	case cmd := <-f.Commands():
		if string(cmd.Payload) != "abc123" {
			t.Errorf("payload: got %q", cmd.Payload)
		}
	default:
		t.Fatal("expected a queued command")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.PublishState(StateEvent{})
	f.PublishLog([]string{"x"})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true
	f.PublishError = errors.New("error")

	f.Reset()

	if f.States != nil || f.StatePayloads != nil || f.Logs != nil || f.SystemEvents != nil || f.SystemPayloads != nil {
		t.Error("recordings should be cleared")
	}
	if f.Closed || f.Connected || f.PublishError != nil {
		t.Error("flags should be reset")
	}

	if err := f.PublishState(StateEvent{}); err != nil {
		t.Errorf("publisher should be reusable after reset: %v", err)
	}
}
