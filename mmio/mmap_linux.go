package mmio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map opens the given memory device and maps size bytes starting at the
// physical base address. Use "/dev/gpiomem" with base 0, or "/dev/mem" with
// the real peripheral address (requires root).
func Map(path string, base int64, size int) (*Bank, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("Could not open %s: %w", path, err)
	}
	defer file.Close()

	mem, err := unix.Mmap(
		int(file.Fd()),
		base,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("Could not map %#x+%#x from %s: %w", base, size, path, err)
	}

	b := &Bank{}
	if err := b.attach(mem); err != nil {
		unix.Munmap(mem)
		return nil, err
	}

	b.mapped = mem

	return b, nil
}

// Unmap releases the mapping. The bank rejects all accesses afterwards.
func (b *Bank) Unmap() error {
	b.mem = nil
	b.size = 0

	if b.mapped == nil {
		return nil
	}

	mem := b.mapped
	b.mapped = nil

	return unix.Munmap(mem)
}
