package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	simpleled "github.com/BertoldVdb/go-simpleled"
	"github.com/BertoldVdb/go-simpleled/funcsel"
	"github.com/BertoldVdb/go-simpleled/logconfig"
)

/* Validate before narrowing, a 64-bit flag value must not alias to a valid
 * pin when cast to uint32 */
func pinFromFlag(value uint64) (uint32, error) {
	if value >= funcsel.NumGPIOs {
		return 0, funcsel.ErrorPinRange
	}

	return uint32(value), nil
}

func runCommand(dev *simpleled.Device, line string) error {
	/* Each command runs inside its own exclusive open/release window */
	if err := dev.Open(context.Background()); err != nil {
		return err
	}
	defer dev.Release()

	switch line {
	case "r":
		var buf [2]byte
		if _, err := dev.Read(buf[:]); err != nil {
			return err
		}
		fmt.Println(string(buf[0]))

	default:
		if _, err := dev.Write([]byte(line)); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	gpioNum := flag.Uint64("gpio", simpleled.DefaultPin, "The gpio where the LED is connected")
	memPath := flag.String("devmem", "", "Memory device to map. Empty uses /dev/mem with the default base")
	baseAddr := flag.Int64("base", 0, "Physical base address of the GPIO registers")
	logconfig.InitParam()
	flag.Parse()

	logger := logconfig.GetLogger(logrus.InfoLevel)

	pin, err := pinFromFlag(*gpioNum)
	if err != nil {
		logger.WithField("gpio", *gpioNum).WithError(err).Fatal("Invalid gpio number")
	}

	dev, err := simpleled.New(&simpleled.Config{
		PinNumber:   pin,
		MemPath:     *memPath,
		BaseAddress: *baseAddr,
		Logger:      logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Could not initialize LED driver")
	}
	defer dev.Close()

	fmt.Println("Commands: 1 = on, 0 = off, r = read, q = quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "q" {
			break
		}

		if err := runCommand(dev, line); err != nil {
			logger.WithError(err).Error("Command failed")
		}
	}
}
