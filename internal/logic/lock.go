package logic

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
)

// Lock is the access-control state machine. It owns the indicator outputs
// and the persisted secret, and is driven by two debounced inputs:
// the manual override switch and the multi-purpose control button.
//
// Lock is not safe for concurrent use. All calls, including Poll, must come
// from the single run-loop goroutine.
type Lock struct {
	cfg    Config
	clock  Clock
	out    PinWriter
	store  SecretStore
	notify Notifier

	override *Monitor
	control  *Monitor
	history  *UnlockHistory

	state        State
	lastUnlocked time.Duration

	// errs collects output and persistence failures until the next Poll.
	errs []error
}

// NewLock creates a locked Lock and drives the outputs to match.
// notify may be nil.
func NewLock(cfg Config, in PinReader, out PinWriter, c Clock, store SecretStore, notify Notifier) *Lock {
	l := &Lock{
		cfg:     cfg,
		clock:   c,
		out:     out,
		store:   store,
		notify:  notify,
		history: NewUnlockHistory(cfg.HistorySize),
		state:   State{Base: BaseLocked},
	}
	l.override = NewMonitor(cfg.OverrideLine, in, c, cfg.SettleDelay, 0, overrideHandler{l}, nil)
	ctl := controlHandler{l}
	l.control = NewMonitor(cfg.ControlLine, in, c, cfg.SettleDelay, cfg.SecretHold, ctl, ctl)
	l.drive()
	return l
}

// UnlockWithMessage handles an unlock request carrying candidate.
//
// In secret-update mode the candidate replaces the stored secret without
// being checked, and the mode is cleared. Otherwise a locked Lock opens if
// candidate matches the stored secret byte for byte. Rejections are silent.
// The result reports whether the lock is open after the call.
func (l *Lock) UnlockWithMessage(candidate []byte) bool {
	if l.state.UpdatingSecret {
		secret := cString(candidate, l.cfg.MaxSecretLength)
		if err := l.store.WriteSecret(secret); err != nil {
			l.errs = append(l.errs, fmt.Errorf("write secret: %w", err))
		}
		l.state.UpdatingSecret = false
		l.changed()
		return !l.state.IsLocked()
	}

	if !l.state.IsLocked() {
		return true
	}

	stored, err := l.store.ReadSecret()
	if err != nil || stored == "" {
		return false
	}
	got := cString(candidate, len(candidate))
	if subtle.ConstantTimeCompare([]byte(got), []byte(stored)) != 1 {
		return false
	}

	l.unlock(BaseUnlocked)
	return true
}

// Lock closes the lock unconditionally and clears the last-unlocked marker.
func (l *Lock) Lock() {
	l.lastUnlocked = 0
	l.state.Base = BaseLocked
	l.drive()
	l.changed()
}

// Poll must be called on every tick. It polls the override input, then the
// control input, then re-locks if the unlock duration has elapsed while the
// override is released. The returned error joins any pin or persistence
// failures since the previous Poll; the state machine itself never fails.
func (l *Lock) Poll() error {
	var errs []error
	if err := l.override.Poll(); err != nil {
		errs = append(errs, fmt.Errorf("override: %w", err))
	}
	if err := l.control.Poll(); err != nil {
		errs = append(errs, fmt.Errorf("control: %w", err))
	}

	if !l.override.State() && !l.state.IsLocked() {
		if l.clock.Now()-l.lastUnlocked >= l.cfg.UnlockDuration {
			l.Lock()
		}
	}

	errs = append(errs, l.errs...)
	l.errs = nil
	return errors.Join(errs...)
}

// UnlockTime returns the unlock time offset events back from the most recent.
// Offsets beyond the recorded history return zero.
func (l *Lock) UnlockTime(offset int) time.Duration {
	return l.history.At(offset)
}

// History returns the recorded unlock times, most recent first.
func (l *Lock) History() []time.Duration {
	return l.history.Snapshot()
}

// IsLocked reports whether the base state is LOCKED.
func (l *Lock) IsLocked() bool {
	return l.state.IsLocked()
}

// State returns the current lock state.
func (l *Lock) State() State {
	return l.state
}

// OverrideActive reports the debounced level of the override input.
func (l *Lock) OverrideActive() bool {
	return l.override.State()
}

// LastUnlocked returns the time the relock countdown started, zero when locked.
func (l *Lock) LastUnlocked() time.Duration {
	return l.lastUnlocked
}

func (l *Lock) unlock(base Base) {
	now := l.clock.Now()
	l.lastUnlocked = now
	l.history.Record(now)
	l.state.Base = base
	l.drive()
	l.changed()
}

// enterSecretMode plays the blink ritual and raises the update flag.
// The ritual blocks the tick for BlinkCount*2*BlinkInterval.
func (l *Lock) enterSecretMode() {
	for i := 0; i < l.cfg.BlinkCount; i++ {
		l.setOutputs(true, true)
		l.clock.Sleep(l.cfg.BlinkInterval)
		l.setOutputs(false, false)
		l.clock.Sleep(l.cfg.BlinkInterval)
	}
	l.drive()
	l.state.UpdatingSecret = true
	l.changed()
}

func (l *Lock) drive() {
	locked := l.state.IsLocked()
	l.setOutputs(locked, !locked)
}

func (l *Lock) setOutputs(locked, unlocked bool) {
	if err := l.out.Set(l.cfg.LockedLine, locked); err != nil {
		l.errs = append(l.errs, fmt.Errorf("set locked indicator: %w", err))
	}
	if err := l.out.Set(l.cfg.UnlockedLine, unlocked); err != nil {
		l.errs = append(l.errs, fmt.Errorf("set unlocked indicator: %w", err))
	}
}

func (l *Lock) changed() {
	if l.notify != nil {
		l.notify.LockStateChanged(l.state)
	}
}

func (l *Lock) requestLog(full bool) {
	if l.notify != nil {
		l.notify.LogRequested(full)
	}
}

// overrideHandler binds the override input to its Lock.
type overrideHandler struct{ l *Lock }

func (h overrideHandler) HandleToggle(_ int, high bool, _ time.Duration) {
	if high {
		h.l.unlock(BaseOverridden)
		return
	}
	// Released: start the normal relock countdown instead of locking now.
	h.l.lastUnlocked = h.l.clock.Now()
}

// controlHandler binds the multi-purpose button to its Lock.
type controlHandler struct{ l *Lock }

// HandleToggle classifies a release by how long the button was held,
// longest range first.
func (h controlHandler) HandleToggle(_ int, high bool, held time.Duration) {
	if high {
		return
	}
	switch {
	case held >= h.l.cfg.SecretHold:
		// Handled by HandleTimeout while the button was still down.
	case held >= h.l.cfg.FullLogHold:
		h.l.requestLog(true)
	default:
		h.l.requestLog(false)
	}
}

func (h controlHandler) HandleTimeout(_ int, _ time.Duration) {
	h.l.enterSecretMode()
}

// cString applies fixed-buffer string semantics: the value ends at the
// first NUL byte and never exceeds limit bytes.
func cString(b []byte, limit int) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if limit >= 0 && len(b) > limit {
		b = b[:limit]
	}
	return string(b)
}

// Initialise makes sure a secret is persisted. An unreadable or empty
// secret is replaced by def, truncated to limit bytes. wrote reports whether
// the default was written.
func Initialise(store SecretStore, def string, limit int) (wrote bool, err error) {
	secret, err := store.ReadSecret()
	if err == nil && secret != "" {
		return false, nil
	}
	if err := store.WriteSecret(cString([]byte(def), limit)); err != nil {
		return false, fmt.Errorf("write default secret: %w", err)
	}
	return true, nil
}

// EventQueue is a Notifier that records notifications so the run loop can
// handle them after the tick that produced them.
type EventQueue struct {
	clock  Clock
	events []Event
}

// NewEventQueue creates an empty queue stamping events with c.
func NewEventQueue(c Clock) *EventQueue {
	return &EventQueue{clock: c}
}

// LockStateChanged records a state change.
func (q *EventQueue) LockStateChanged(s State) {
	q.events = append(q.events, Event{Time: q.clock.Now(), Type: EventStateChanged, State: s})
}

// LogRequested records a log request.
func (q *EventQueue) LogRequested(full bool) {
	q.events = append(q.events, Event{Time: q.clock.Now(), Type: EventLogRequested, Full: full})
}

// Drain returns and clears the recorded events, oldest first.
func (q *EventQueue) Drain() []Event {
	events := q.events
	q.events = nil
	return events
}
