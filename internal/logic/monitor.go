package logic

import (
	"fmt"
	"time"
)

// Monitor turns a noisy binary input into debounced toggle and timeout events.
type Monitor struct {
	line    int
	reader  PinReader
	clock   Clock
	settle  time.Duration
	timeout time.Duration

	onToggle  ToggleHandler
	onTimeout TimeoutHandler

	stable     bool
	lastChange time.Duration
	armed      bool
	armedSince time.Duration
}

// NewMonitor creates a Monitor seeded from one read of the input.
// onTimeout may be nil, in which case no timeout is tracked. A failed seed
// read starts the signal low; the first successful polls correct it.
func NewMonitor(line int, reader PinReader, c Clock, settle, timeout time.Duration, onToggle ToggleHandler, onTimeout TimeoutHandler) *Monitor {
	initial, err := reader.Read(line)
	if err != nil {
		initial = false
	}
	return &Monitor{
		line:       line,
		reader:     reader,
		clock:      c,
		settle:     settle,
		timeout:    timeout,
		onToggle:   onToggle,
		onTimeout:  onTimeout,
		stable:     initial,
		lastChange: c.Now(),
	}
}

// Poll samples the input twice, settle apart. A toggle is confirmed only when
// both samples agree and differ from the stable state. It then checks the
// held-high timeout. Read errors skip the toggle check for this poll.
func (m *Monitor) Poll() error {
	now := m.clock.Now()

	a, err := m.reader.Read(m.line)
	if err != nil {
		return fmt.Errorf("read line %d: %w", m.line, err)
	}
	m.clock.Sleep(m.settle)
	b, err := m.reader.Read(m.line)
	if err != nil {
		return fmt.Errorf("read line %d: %w", m.line, err)
	}

	if a == b && a != m.stable {
		if m.onToggle != nil {
			m.onToggle.HandleToggle(m.line, a, now-m.lastChange)
		}
		m.stable = a
		m.lastChange = now
		m.armed = a
		m.armedSince = now
	}

	m.checkTimeout(m.clock.Now())
	return nil
}

func (m *Monitor) checkTimeout(now time.Duration) {
	if m.onTimeout == nil || !m.armed || !m.stable {
		return
	}
	held := now - m.armedSince
	if held < m.timeout {
		return
	}
	// One timeout per continuous high period.
	m.armed = false
	m.onTimeout.HandleTimeout(m.line, held)
}

// State returns the current debounced level without emitting any event.
func (m *Monitor) State() bool {
	return m.stable
}

// LastChange returns the elapsed time at which the stable state last changed.
func (m *Monitor) LastChange() time.Duration {
	return m.lastChange
}
