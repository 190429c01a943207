//go:build !linux

package gpio

import "errors"

// RealPins is not available on non-Linux platforms.
type RealPins struct{}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(chip string, inputs, outputs []int, invert bool) (*RealPins, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (p *RealPins) Read(line int) (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Set is not implemented on non-Linux platforms.
func (p *RealPins) Set(line int, high bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *RealPins) Close() error {
	return nil
}
