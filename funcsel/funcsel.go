package funcsel

import (
	"errors"
)

// NumGPIOs is the number of pins addressable in the target register layout
const NumGPIOs = 28

const (
	fieldMask  = 0x7
	codeOutput = 0x1
)

var (
	// ErrorPinRange is returned for pin numbers outside [0, NumGPIOs)
	ErrorPinRange = errors.New("Pin number out of range")
)

// Bank is the register access this package needs. *mmio.Bank implements it.
type Bank interface {
	Read32(offset uint32) (uint32, error)
	Write32(offset uint32, value uint32) error
}

// Descriptor locates the 3-bit function code of one pin. The function select
// registers pack ten pins per 32-bit word, so every mutation must be a
// read-modify-write that leaves the other nine fields alone.
type Descriptor struct {
	Pin       uint32
	RegOffset uint32
	BitOffset uint32
}

// Saved holds the function code a pin had before the driver took it over
type Saved struct {
	Code uint32
}

// NewDescriptor computes the register and bit offsets for the given pin
func NewDescriptor(pin uint32) (Descriptor, error) {
	if pin >= NumGPIOs {
		return Descriptor{}, ErrorPinRange
	}

	return Descriptor{
		Pin:       pin,
		RegOffset: 4 * (pin / 10),
		BitOffset: (pin % 10) * 3,
	}, nil
}

// Save captures the current function code of the pin. Call it once, before
// the field is mutated, and keep the result for Restore.
func Save(b Bank, d Descriptor) (Saved, error) {
	val, err := b.Read32(d.RegOffset)
	if err != nil {
		return Saved{}, err
	}

	return Saved{Code: (val >> d.BitOffset) & fieldMask}, nil
}

// SetOutput switches the pin to the output function (code 001)
func SetOutput(b Bank, d Descriptor) error {
	val, err := b.Read32(d.RegOffset)
	if err != nil {
		return err
	}

	val &= ^(uint32(0x6) << d.BitOffset)
	val |= codeOutput << d.BitOffset

	return b.Write32(d.RegOffset, val)
}

// Restore writes back the function code captured by Save, undoing SetOutput
func Restore(b Bank, d Descriptor, s Saved) error {
	val, err := b.Read32(d.RegOffset)
	if err != nil {
		return err
	}

	val &= ^(uint32(fieldMask) << d.BitOffset)
	val |= s.Code << d.BitOffset

	return b.Write32(d.RegOffset, val)
}
