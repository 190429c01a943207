package gpio

import "fmt"

// FakePins is a test double with scripted inputs and recorded outputs.
type FakePins struct {
	// Levels holds the live level of each input line.
	Levels map[int]bool

	// Samples holds scripted reads per line. Each Read consumes the next
	// sample; the last sample repeats once the script is exhausted.
	Samples map[int][]bool

	// Outputs holds the last value written to each output line.
	Outputs map[int]bool

	// Writes records every Set call in order.
	Writes []Write

	// ReadError, if set, will be returned by Read.
	ReadError error

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool

	index map[int]int
}

// Write is one recorded Set call.
type Write struct {
	Line int
	High bool
}

// NewFakePins creates a FakePins with all inputs low.
func NewFakePins() *FakePins {
	return &FakePins{
		Levels:  make(map[int]bool),
		Samples: make(map[int][]bool),
		Outputs: make(map[int]bool),
		index:   make(map[int]int),
	}
}

// Read returns the next scripted sample for line, or its live level.
func (f *FakePins) Read(line int) (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	samples := f.Samples[line]
	if len(samples) == 0 {
		return f.Levels[line], nil
	}

	i := f.index[line]
	if i < len(samples)-1 {
		f.index[line] = i + 1
	}
	return samples[i], nil
}

// Set records the write.
func (f *FakePins) Set(line int, high bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Outputs[line] = high
	f.Writes = append(f.Writes, Write{Line: line, High: high})
	return nil
}

// Script replaces the scripted samples for line and rewinds it.
func (f *FakePins) Script(line int, samples ...bool) {
	f.Samples[line] = samples
	f.index[line] = 0
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	if f.Closed {
		return fmt.Errorf("already closed")
	}
	f.Closed = true
	return nil
}

// Reset clears scripts, outputs and recorded writes.
func (f *FakePins) Reset() {
	f.Levels = make(map[int]bool)
	f.Samples = make(map[int][]bool)
	f.Outputs = make(map[int]bool)
	f.Writes = nil
	f.index = make(map[int]int)
	f.ReadError = nil
	f.SetError = nil
	f.Closed = false
}
