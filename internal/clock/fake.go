package clock

import "time"

// Fake is a manually driven Clock for tests.
// Sleep advances virtual time instead of blocking.
type Fake struct {
	now time.Duration

	// Sleeps records every duration passed to Sleep.
	Sleeps []time.Duration

	// OnSleep, if set, is called after virtual time has advanced.
	// Tests use it to change pin levels between the two debounce reads.
	OnSleep func(now time.Duration)
}

// NewFake creates a Fake clock starting at the given elapsed time.
func NewFake(start time.Duration) *Fake {
	return &Fake{now: start}
}

// Now returns the current virtual time.
func (f *Fake) Now() time.Duration {
	return f.now
}

// Sleep advances virtual time by d.
func (f *Fake) Sleep(d time.Duration) {
	f.Sleeps = append(f.Sleeps, d)
	f.now += d
	if f.OnSleep != nil {
		f.OnSleep(f.now)
	}
}

// Advance moves virtual time forward by d without recording a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.now += d
}

// Set moves virtual time to t.
func (f *Fake) Set(t time.Duration) {
	f.now = t
}
