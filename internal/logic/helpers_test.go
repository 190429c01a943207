package logic

import (
	"errors"
	"time"

	"github.com/sweeney/lock-controller/internal/clock"
)

// testPins is a minimal pin fake: live levels per line, optional scripted
// reads that are consumed before falling back to the live level.
type testPins struct {
	levels  map[int]bool
	script  map[int][]bool
	outputs map[int]bool
	writes  []pinWrite
	readErr error
}

type pinWrite struct {
	line int
	high bool
}

func newTestPins() *testPins {
	return &testPins{
		levels:  make(map[int]bool),
		script:  make(map[int][]bool),
		outputs: make(map[int]bool),
	}
}

func (p *testPins) Read(line int) (bool, error) {
	if p.readErr != nil {
		return false, p.readErr
	}
	if s := p.script[line]; len(s) > 0 {
		v := s[0]
		p.script[line] = s[1:]
		return v, nil
	}
	return p.levels[line], nil
}

func (p *testPins) Set(line int, high bool) error {
	p.outputs[line] = high
	p.writes = append(p.writes, pinWrite{line, high})
	return nil
}

type toggleCall struct {
	line int
	high bool
	held time.Duration
}

type timeoutCall struct {
	line int
	held time.Duration
}

// recorder implements ToggleHandler and TimeoutHandler.
type recorder struct {
	toggles  []toggleCall
	timeouts []timeoutCall
}

func (r *recorder) HandleToggle(line int, high bool, held time.Duration) {
	r.toggles = append(r.toggles, toggleCall{line, high, held})
}

func (r *recorder) HandleTimeout(line int, held time.Duration) {
	r.timeouts = append(r.timeouts, timeoutCall{line, held})
}

// memStore is an in-memory SecretStore.
type memStore struct {
	secret   string
	readErr  error
	writeErr error
	writes   int
}

func (m *memStore) ReadSecret() (string, error) {
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.secret, nil
}

func (m *memStore) WriteSecret(s string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.secret = s
	return nil
}

var errBoom = errors.New("boom")

const (
	lineOverride = 5
	lineControl  = 6
	lineLocked   = 20
	lineUnlocked = 21
)

type lockFixture struct {
	lock   *Lock
	pins   *testPins
	clock  *clock.Fake
	store  *memStore
	events *EventQueue
}

func newLockFixture() *lockFixture {
	pins := newTestPins()
	c := clock.NewFake(time.Second)
	store := &memStore{secret: DefaultSecret}
	events := NewEventQueue(c)
	cfg := DefaultConfig(lineOverride, lineControl, lineLocked, lineUnlocked)
	return &lockFixture{
		lock:   NewLock(cfg, pins, pins, c, store, events),
		pins:   pins,
		clock:  c,
		store:  store,
		events: events,
	}
}

// pollFor polls every step until d has elapsed (sleeps inside Poll count too).
func (f *lockFixture) pollFor(d, step time.Duration) {
	end := f.clock.Now() + d
	for f.clock.Now() < end {
		f.lock.Poll()
		f.clock.Advance(step)
	}
}
