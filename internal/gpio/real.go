//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealPins drives actual hardware through the Linux GPIO character device.
type RealPins struct {
	chip    *gpiocdev.Chip
	inputs  map[int]*gpiocdev.Line
	outputs map[int]*gpiocdev.Line
	invert  bool
}

// NewRealPins requests the given input and output lines on chip.
// Inputs use pull-down to match Pi boot defaults. When invert is set, a raw
// low input reads as asserted (active-low wiring). Outputs start low.
func NewRealPins(chip string, inputs, outputs []int, invert bool) (*RealPins, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	p := &RealPins{
		chip:    c,
		inputs:  make(map[int]*gpiocdev.Line),
		outputs: make(map[int]*gpiocdev.Line),
		invert:  invert,
	}

	for _, offset := range inputs {
		l, err := c.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request input pin %d: %w", offset, err)
		}
		p.inputs[offset] = l
	}
	for _, offset := range outputs {
		l, err := c.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request output pin %d: %w", offset, err)
		}
		p.outputs[offset] = l
	}

	return p, nil
}

// Read returns the logical level of an input line.
func (p *RealPins) Read(line int) (bool, error) {
	l, ok := p.inputs[line]
	if !ok {
		return false, fmt.Errorf("pin %d not requested as input", line)
	}
	raw, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", line, err)
	}
	high := raw == 1
	if p.invert {
		high = !high
	}
	return high, nil
}

// Set drives an output line.
func (p *RealPins) Set(line int, high bool) error {
	l, ok := p.outputs[line]
	if !ok {
		return fmt.Errorf("pin %d not requested as output", line)
	}
	v := 0
	if high {
		v = 1
	}
	if err := l.SetValue(v); err != nil {
		return fmt.Errorf("set pin %d: %w", line, err)
	}
	return nil
}

// Close releases GPIO resources.
// Every line is reconfigured to input with pull-down (matching Pi boot
// defaults) before closing, so indicators do not stay driven after exit.
func (p *RealPins) Close() error {
	var errs []error

	release := func(offset int, l *gpiocdev.Line) {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", offset, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", offset, err))
		}
	}
	for offset, l := range p.inputs {
		release(offset, l)
	}
	for offset, l := range p.outputs {
		release(offset, l)
	}
	p.inputs = nil
	p.outputs = nil

	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		p.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
