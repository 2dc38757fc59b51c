package mmio

import (
	"errors"
	"unsafe"
)

var (
	// ErrorOutOfRange is returned when a register access falls outside the bank
	ErrorOutOfRange = errors.New("Register offset out of range")

	// ErrorUnaligned is returned when a register offset is not 32-bit aligned
	ErrorUnaligned = errors.New("Register offset not 32-bit aligned")

	// ErrorUnmapped is returned when the bank is accessed after Unmap
	ErrorUnmapped = errors.New("Bank is not mapped")

	// ErrorBadSize is returned when the region length is not a positive multiple of 4
	ErrorBadSize = errors.New("Region size must be a positive multiple of 4")
)

// Bank is a 32-bit register view over a fixed-size memory region. All accesses
// are bounds checked against the region, so code holding a Bank cannot touch
// registers outside the window that was reserved for it.
type Bank struct {
	mem  []uint32
	size uint32

	mapped []byte
}

// NewBank wraps an existing memory region. The region stays owned by the
// caller, Unmap only detaches the view.
func NewBank(mem []byte) (*Bank, error) {
	b := &Bank{}

	if err := b.attach(mem); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Bank) attach(mem []byte) error {
	if len(mem) == 0 || len(mem)%4 != 0 {
		return ErrorBadSize
	}

	/* Reinterpret the byte region as uint32 registers */
	b.mem = unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), len(mem)/4)
	b.size = uint32(len(mem))

	return nil
}

// Size returns the length of the mapped region in bytes
func (b *Bank) Size() uint32 {
	return b.size
}

func (b *Bank) check(offset uint32) error {
	if b.mem == nil {
		return ErrorUnmapped
	}
	if offset%4 != 0 {
		return ErrorUnaligned
	}

	/* offset+4 can wrap around, so compare against the remaining space */
	if offset >= b.size || b.size-offset < 4 {
		return ErrorOutOfRange
	}

	return nil
}

// Read32 reads the 32-bit register at the given byte offset
func (b *Bank) Read32(offset uint32) (uint32, error) {
	if err := b.check(offset); err != nil {
		return 0, err
	}

	return b.mem[offset/4], nil
}

// Write32 writes the 32-bit register at the given byte offset. The write takes
// effect immediately, there is no caching or batching.
func (b *Bank) Write32(offset uint32, value uint32) error {
	if err := b.check(offset); err != nil {
		return err
	}

	b.mem[offset/4] = value

	return nil
}
