// Package clock provides the monotonic time source consumed by the lock core.
// Times are expressed as elapsed time since boot, so a zero value can act as
// an "unset" marker.
package clock

import "time"

// Clock supplies monotonic elapsed time and a real wait.
type Clock interface {
	// Now returns the time elapsed since boot.
	Now() time.Duration
	// Sleep blocks for d of real elapsed time.
	Sleep(d time.Duration)
}

// Monotonic is a Clock backed by the Go runtime's monotonic clock.
type Monotonic struct {
	start time.Time
}

// NewMonotonic returns a Clock whose zero point is the moment of the call.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Now returns the time elapsed since the clock was created.
func (m *Monotonic) Now() time.Duration {
	return time.Since(m.start)
}

// Sleep pauses the calling goroutine for d.
func (m *Monotonic) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Start returns the wall-clock time corresponding to elapsed time zero.
func (m *Monotonic) Start() time.Time {
	return m.start
}
