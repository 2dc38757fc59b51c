// Package simpleled drives a single GPIO-connected LED on a BCM2835 class SoC
// through direct memory-mapped register I/O. The device behaves like a file:
// Open grants exclusive access, Write with "0"/"1" drives the pin, Read
// reports the sampled level. On Close the pin is cleared and its original
// function select code is restored, so loading and unloading the driver
// leaves the hardware exactly as it was found.
package simpleled

import (
	"context"
	"errors"

	"github.com/BertoldVdb/go-misc/closeflag"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BertoldVdb/go-simpleled/funcsel"
	"github.com/BertoldVdb/go-simpleled/mmio"
	"github.com/BertoldVdb/go-simpleled/pinio"
	"github.com/BertoldVdb/go-simpleled/session"
)

const (
	// PeripheralBase is the physical base of the peripheral window (BCM2837)
	PeripheralBase = 0x3f000000

	// GPIOBase is the physical address of the first GPIO register
	GPIOBase = PeripheralBase + 0x200000

	// RegionSize covers the GPIO registers the driver touches
	RegionSize = 0x3c

	// DefaultPin is used when the configuration does not select a pin
	DefaultPin = 3

	bufSize = 2
)

var (
	// ErrorBufferAccess is returned when a caller supplied buffer cannot hold
	// the transfer. No hardware access happens in that case.
	ErrorBufferAccess = errors.New("Caller buffer not accessible for the required transfer")
)

// Bank is the register access the driver needs. *mmio.Bank implements it.
type Bank interface {
	Read32(offset uint32) (uint32, error)
	Write32(offset uint32, value uint32) error
}

// Config selects the pin and the memory device backing the register bank
type Config struct {
	// PinNumber is the gpio the LED is connected to, valid range [0, 28)
	PinNumber uint32

	// MemPath is the memory device to map. Empty selects "/dev/mem" with
	// BaseAddress forced to GPIOBase. Use "/dev/gpiomem" with BaseAddress 0
	// to run without root.
	MemPath string

	// BaseAddress is the physical address passed to mmap
	BaseAddress int64

	// Logger enables logging when set
	Logger *logrus.Entry
}

// Device is one driver instance. It owns the register bank, the saved
// function select code and the exclusive session for its whole lifetime.
// Create it with New or NewFromBank, destroy it with Close. Creation and
// Close must not run concurrently with anything else, the session only
// serializes the Open/Release window.
type Device struct {
	bank  Bank
	unmap func() error

	desc  funcsel.Descriptor
	saved funcsel.Saved

	sess      session.Session
	sessionID string

	closed closeflag.CloseFlag
	logger *logrus.Entry
}

// New maps the GPIO register bank and initializes the driver on it
func New(config *Config) (*Device, error) {
	path := config.MemPath
	base := config.BaseAddress
	if path == "" {
		path = "/dev/mem"
		base = GPIOBase
	}

	bank, err := mmio.Map(path, base, RegionSize)
	if err != nil {
		return nil, err
	}

	dev, err := NewFromBank(bank, config)
	if err != nil {
		bank.Unmap()
		return nil, err
	}

	dev.unmap = bank.Unmap

	return dev, nil
}

// NewFromBank initializes the driver on a caller supplied register bank. The
// bank stays owned by the caller and is not unmapped on Close.
func NewFromBank(bank Bank, config *Config) (*Device, error) {
	desc, err := funcsel.NewDescriptor(config.PinNumber)
	if err != nil {
		return nil, err
	}

	dev := &Device{
		bank:   bank,
		desc:   desc,
		logger: config.Logger,
	}

	/* Capture the original function code before the first mutation, Close
	 * needs it to put the pin back */
	dev.saved, err = funcsel.Save(bank, desc)
	if err != nil {
		return nil, err
	}

	if err := funcsel.SetOutput(bank, desc); err != nil {
		return nil, err
	}

	dev.closed.CloseFunc = dev.teardown

	if dev.logger != nil {
		dev.logger.WithFields(logrus.Fields{
			"gpio":  desc.Pin,
			"saved": dev.saved.Code,
		}).Info("LED driver loaded")
	}

	return dev, nil
}

// Open grants the caller exclusive access to the device. It blocks while
// another caller holds the device open, waiters are served in FIFO order.
// The context is the only way out of the wait.
func (d *Device) Open(ctx context.Context) error {
	if err := d.sess.Acquire(ctx); err != nil {
		return err
	}

	d.sessionID = uuid.New().String()

	if d.logger != nil {
		d.logger.WithField("session", d.sessionID).Debug("Session opened")
	}

	return nil
}

// Release ends the caller's exclusive access, waking the oldest waiter
func (d *Device) Release() error {
	if d.logger != nil && d.sessionID != "" {
		d.logger.WithField("session", d.sessionID).Debug("Session released")
	}

	d.sessionID = ""
	d.sess.Release()

	return nil
}

// Read samples the pin and stores its level into p as "0" or "1" followed by
// a NUL terminator. p must hold at least 2 bytes, otherwise ErrorBufferAccess
// is returned and the hardware is not touched.
func (d *Device) Read(p []byte) (int, error) {
	if len(p) < bufSize {
		if d.logger != nil {
			d.logger.WithField("session", d.sessionID).Error("Cannot access caller buffer for writing")
		}
		return 0, ErrorBufferAccess
	}

	level, err := pinio.Level(d.bank, d.desc.Pin)
	if err != nil {
		return 0, err
	}

	p[0] = level
	p[1] = 0

	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{
			"session": d.sessionID,
			"value":   string(level),
		}).Info("Read pin level")
	}

	return bufSize, nil
}

// Write interprets the first byte of p as a command: '0' clears the pin, any
// other value sets it. The reported count is always 2, matching the fixed
// 2-byte command buffer of the wire contract even when p is longer or
// shorter. Only the first byte is ever inspected.
func (d *Device) Write(p []byte) (int, error) {
	if len(p) == 0 {
		if d.logger != nil {
			d.logger.WithField("session", d.sessionID).Error("Cannot access caller buffer for reading")
		}
		return 0, ErrorBufferAccess
	}

	var err error
	if p[0] == '0' {
		err = pinio.Clear(d.bank, d.desc.Pin)
	} else {
		err = pinio.Set(d.bank, d.desc.Pin)
	}
	if err != nil {
		return 0, err
	}

	return bufSize, nil
}

func (d *Device) teardown() error {
	errClear := pinio.Clear(d.bank, d.desc.Pin)
	errRestore := funcsel.Restore(d.bank, d.desc, d.saved)

	var errUnmap error
	if d.unmap != nil {
		errUnmap = d.unmap()
	}

	if d.logger != nil {
		d.logger.WithField("gpio", d.desc.Pin).Info("LED driver unloaded")
	}

	if errClear != nil {
		return errClear
	}
	if errRestore != nil {
		return errRestore
	}

	return errUnmap
}

// Close clears the pin, restores its original function select code and
// unmaps the register bank when the device owns the mapping. It can safely
// be called multiple times, only the first call does the teardown. Close
// must not race with in-flight Open/Read/Write callers.
func (d *Device) Close() error {
	return d.closed.Close()
}
