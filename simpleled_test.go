package simpleled

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BertoldVdb/go-simpleled/funcsel"
	"github.com/BertoldVdb/go-simpleled/pinio"
)

/* simBank emulates the GPIO bank: function select words behave like memory,
 * the set and clear registers are write-1-to-act on the level word */
type simBank struct {
	fsel [6]uint32
	lev  uint32
}

var errorSimRange = errors.New("Offset outside simulated bank")

func (s *simBank) Read32(offset uint32) (uint32, error) {
	switch {
	case offset < 0x18:
		return s.fsel[offset/4], nil
	case offset == pinio.LevelOffset:
		return s.lev, nil
	case offset < RegionSize:
		return 0, nil
	}

	return 0, errorSimRange
}

func (s *simBank) Write32(offset uint32, value uint32) error {
	switch {
	case offset < 0x18:
		s.fsel[offset/4] = value
	case offset == pinio.SetOffset:
		s.lev |= value
	case offset == pinio.ClearOffset:
		s.lev &= ^value
	case offset >= RegionSize:
		return errorSimRange
	}

	return nil
}

func newDevice(t *testing.T, pin uint32, originalCode uint32) (*Device, *simBank) {
	sim := &simBank{}

	reg := pin / 10
	bit := (pin % 10) * 3
	sim.fsel[reg] = originalCode << bit

	dev, err := NewFromBank(sim, &Config{PinNumber: pin})
	if err != nil {
		t.Fatal("Could not create device:", err)
	}

	return dev, sim
}

func TestLifecycle(t *testing.T) {
	const pin = 3
	const originalCode = 4

	dev, sim := newDevice(t, pin, originalCode)

	/* Initialization must have switched the pin to output */
	if (sim.fsel[0]>>(pin*3))&0x7 != 1 {
		t.Error("Pin was not switched to output")
	}

	if err := dev.Open(context.Background()); err != nil {
		t.Fatal("Open failed:", err)
	}

	var buf [2]byte

	n, err := dev.Write([]byte("1"))
	if err != nil {
		t.Fatal("Write failed:", err)
	}
	if n != 2 {
		t.Error("Write did not report 2 bytes")
	}

	if _, err := dev.Read(buf[:]); err != nil {
		t.Fatal("Read failed:", err)
	}
	if buf[0] != '1' || buf[1] != 0 {
		t.Errorf("Read after set returned %q", buf[:])
	}

	if _, err := dev.Write([]byte("0")); err != nil {
		t.Fatal("Write failed:", err)
	}
	if _, err := dev.Read(buf[:]); err != nil {
		t.Fatal("Read failed:", err)
	}
	if buf[0] != '0' {
		t.Error("Read after clear did not return '0'")
	}

	/* Any first byte other than '0' sets the pin */
	if _, err := dev.Write([]byte("x")); err != nil {
		t.Fatal("Write failed:", err)
	}
	if _, err := dev.Read(buf[:]); err != nil {
		t.Fatal("Read failed:", err)
	}
	if buf[0] != '1' {
		t.Error("Non-'0' command did not set the pin")
	}

	if err := dev.Release(); err != nil {
		t.Fatal("Release failed:", err)
	}

	if err := dev.Close(); err != nil {
		t.Fatal("Close failed:", err)
	}

	if sim.lev&(1<<pin) != 0 {
		t.Error("Close did not clear the pin")
	}
	if (sim.fsel[0]>>(pin*3))&0x7 != originalCode {
		t.Error("Close did not restore the original function code")
	}
}

func TestWriteReportsFixedCount(t *testing.T) {
	dev, _ := newDevice(t, 3, 0)

	/* The command buffer contract is 2 bytes, the reported count does not
	 * follow the supplied length */
	for _, cmd := range []string{"1", "10", "0 long trailing data"} {
		n, err := dev.Write([]byte(cmd))
		if err != nil {
			t.Fatal("Write failed:", err)
		}
		if n != 2 {
			t.Errorf("Write(%q) reported %d bytes, want 2", cmd, n)
		}
	}

	if _, err := dev.Write(nil); err != ErrorBufferAccess {
		t.Error("Empty write buffer was not rejected")
	}

	dev.Close()
}

func TestReadBadBuffer(t *testing.T) {
	dev, sim := newDevice(t, 5, 0)

	dev.Write([]byte("1"))
	levelBefore := sim.lev

	var small [1]byte
	n, err := dev.Read(small[:])
	if err != ErrorBufferAccess {
		t.Error("Undersized read buffer was not rejected")
	}
	if n != 0 {
		t.Error("Failed read reported bytes")
	}

	if sim.lev != levelBefore {
		t.Error("Failed read changed the pin state")
	}

	dev.Close()
}

func TestBadPin(t *testing.T) {
	sim := &simBank{}

	if _, err := NewFromBank(sim, &Config{PinNumber: funcsel.NumGPIOs}); err != funcsel.ErrorPinRange {
		t.Error("Out of range pin was not rejected")
	}
}

func TestExclusiveOpen(t *testing.T) {
	dev, _ := newDevice(t, 3, 0)

	if err := dev.Open(context.Background()); err != nil {
		t.Fatal("Open failed:", err)
	}

	got := make(chan struct{})
	go func() {
		if err := dev.Open(context.Background()); err != nil {
			t.Error("Second open failed:", err)
		}
		close(got)
	}()

	select {
	case <-got:
		t.Fatal("Second open did not block")
	case <-time.After(50 * time.Millisecond):
	}

	dev.Release()

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("Second open was not granted after release")
	}

	dev.Release()
	dev.Close()
}

func TestCloseIdempotent(t *testing.T) {
	const pin = 9
	const originalCode = 2

	dev, sim := newDevice(t, pin, originalCode)

	if err := dev.Close(); err != nil {
		t.Fatal("Close failed:", err)
	}

	bit := (pin % 10) * 3
	word := sim.fsel[0]

	/* The second close reports the duplicate but must not touch the
	 * hardware again */
	if err := dev.Close(); err == nil {
		t.Error("Second close did not report anything")
	}

	if sim.fsel[0] != word {
		t.Error("Second close touched the function select register")
	}
	if (word>>bit)&0x7 != originalCode {
		t.Error("Original function code was not restored")
	}
}
