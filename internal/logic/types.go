// Package logic contains the lock controller core: the debounced input monitor
// and the access-control state machine it drives.
// This package has NO hardware, network or OS dependencies. Pins, persistence
// and time are reached through the small capability interfaces below.
package logic

import (
	"time"

	"github.com/sweeney/lock-controller/internal/clock"
)

// Base is the mutually exclusive part of the lock state.
type Base string

const (
	BaseLocked     Base = "LOCKED"
	BaseUnlocked   Base = "UNLOCKED"
	BaseOverridden Base = "OVERRIDDEN"
)

// State is the full lock state: exactly one base plus the orthogonal
// secret-update flag.
type State struct {
	Base           Base
	UpdatingSecret bool
}

// String renders the state as BASE or BASE+UPDATE_SECRET.
func (s State) String() string {
	if s.UpdatingSecret {
		return string(s.Base) + "+UPDATE_SECRET"
	}
	return string(s.Base)
}

// IsLocked reports whether the base state is LOCKED.
func (s State) IsLocked() bool {
	return s.Base == BaseLocked
}

// PinReader samples a binary input. true = logical high.
type PinReader interface {
	Read(line int) (bool, error)
}

// PinWriter drives a binary output.
type PinWriter interface {
	Set(line int, high bool) error
}

// SecretStore persists the unlock secret across restarts.
// ReadSecret returns "" when nothing has been written yet.
type SecretStore interface {
	ReadSecret() (string, error)
	WriteSecret(secret string) error
}

// ToggleHandler receives confirmed (debounced) level changes.
// held is the time the input spent in its previous state.
type ToggleHandler interface {
	HandleToggle(line int, high bool, held time.Duration)
}

// TimeoutHandler is told once per continuous high period that the input
// has been held for at least the configured duration.
type TimeoutHandler interface {
	HandleTimeout(line int, held time.Duration)
}

// Notifier receives upward notifications from the lock.
type Notifier interface {
	// LockStateChanged is called on every confirmed state transition.
	LockStateChanged(s State)
	// LogRequested is called on short (full=false) and medium (full=true)
	// presses of the control button.
	LogRequested(full bool)
}

// Clock is the time source used by the core.
type Clock = clock.Clock

// EventType identifies a notification recorded by EventQueue.
type EventType string

const (
	EventStateChanged EventType = "STATE_CHANGED"
	EventLogRequested EventType = "LOG_REQUESTED"
)

// Event is a notification captured for later processing by the run loop.
type Event struct {
	Time  time.Duration // elapsed since boot
	Type  EventType
	State State // EventStateChanged only
	Full  bool  // EventLogRequested only
}

// Config holds the timing and sizing constants of the lock.
type Config struct {
	// Input lines.
	OverrideLine int
	ControlLine  int
	// Output lines.
	LockedLine   int
	UnlockedLine int

	// SettleDelay separates the two debounce reads.
	SettleDelay time.Duration
	// UnlockDuration is how long the lock stays open before re-locking.
	UnlockDuration time.Duration
	// FullLogHold is the minimum control press that requests a full log.
	FullLogHold time.Duration
	// SecretHold is the control hold that enters secret-update mode.
	SecretHold time.Duration
	// BlinkCount and BlinkInterval shape the secret-mode feedback ritual.
	BlinkCount    int
	BlinkInterval time.Duration

	HistorySize     int
	MaxSecretLength int
}

// Default lock constants.
const (
	DefaultSettleDelay     = 10 * time.Millisecond
	DefaultUnlockDuration  = 4 * time.Second
	DefaultFullLogHold     = 2 * time.Second
	DefaultSecretHold      = 5 * time.Second
	DefaultBlinkCount      = 5
	DefaultBlinkInterval   = 100 * time.Millisecond
	DefaultHistorySize     = 10
	DefaultMaxSecretLength = 20 // maximum single-write payload of the transport

	DefaultSecret = "abc123"
)

// DefaultConfig returns the default constants with the given pin assignment.
func DefaultConfig(override, control, locked, unlocked int) Config {
	return Config{
		OverrideLine:    override,
		ControlLine:     control,
		LockedLine:      locked,
		UnlockedLine:    unlocked,
		SettleDelay:     DefaultSettleDelay,
		UnlockDuration:  DefaultUnlockDuration,
		FullLogHold:     DefaultFullLogHold,
		SecretHold:      DefaultSecretHold,
		BlinkCount:      DefaultBlinkCount,
		BlinkInterval:   DefaultBlinkInterval,
		HistorySize:     DefaultHistorySize,
		MaxSecretLength: DefaultMaxSecretLength,
	}
}
