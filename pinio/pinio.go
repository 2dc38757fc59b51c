package pinio

// Register offsets in the GPIO bank. Set and clear are write-1-to-act: only
// the bits that are 1 have an effect, so no read-modify-write is needed and
// sibling pins cannot be disturbed.
const (
	SetOffset   = 0x1c
	ClearOffset = 0x28
	LevelOffset = 0x34
)

// Bank is the register access this package needs. *mmio.Bank implements it.
type Bank interface {
	Read32(offset uint32) (uint32, error)
	Write32(offset uint32, value uint32) error
}

// Set drives the pin high
func Set(b Bank, pin uint32) error {
	return b.Write32(SetOffset, 1<<pin)
}

// Clear drives the pin low
func Clear(b Bank, pin uint32) error {
	return b.Write32(ClearOffset, 1<<pin)
}

// Level samples the electrical state of the pin and returns it as '0' or '1'
func Level(b Bank, pin uint32) (byte, error) {
	val, err := b.Read32(LevelOffset)
	if err != nil {
		return 0, err
	}

	if (val>>pin)&1 != 0 {
		return '1', nil
	}

	return '0', nil
}
