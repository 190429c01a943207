// Package gpio provides GPIO access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Pins reads inputs and drives outputs by line offset.
type Pins interface {
	// Read returns the logical level of an input line (true = asserted).
	Read(line int) (bool, error)

	// Set drives an output line.
	Set(line int, high bool) error

	// Close releases GPIO resources.
	Close() error
}

// Default line assignment (BCM numbering).
const (
	DefaultPinOverride = 17 // manual override switch
	DefaultPinControl  = 27 // multi-purpose log / secret button
	DefaultPinLocked   = 23 // locked indicator
	DefaultPinUnlocked = 24 // unlocked indicator
)

// DefaultChip is the GPIO character device used on Raspberry Pi boards.
const DefaultChip = "gpiochip0"
