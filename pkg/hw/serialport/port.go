// Package serialport opens a host serial device as the wire of the
// simulated peripheral.
package serialport

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.bug.st/serial"
)

// Config selects the serial device.
type Config struct {
	// Device is the port name, e.g. /dev/ttyUSB0 or COM3.
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
}

var defaultConfig = Config{
	BaudRate:    9600,
	ReadTimeout: 100 * time.Millisecond,
}

func init() {
	if val := os.Getenv("PICUART_PORT"); val != "" {
		defaultConfig.Device = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "port", defaultConfig.Device, "Serial device used as the wire.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "port-read-timeout", defaultConfig.ReadTimeout, "Serial read timeout.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Open opens the port in 8N1.
func (c *Config) Open() (serial.Port, error) {
	if c.Device == "" {
		return nil, errors.New("serial device not specified")
	}
	port, err := serial.Open(c.Device, &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Device, err)
	}
	if c.ReadTimeout > 0 {
		if err := port.SetReadTimeout(c.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", c.Device, err)
		}
	}
	return port, nil
}

// List returns the serial ports present on the host.
func List() ([]string, error) {
	return serial.GetPortsList()
}

// IsDisconnected reports whether err means the device went away.
func IsDisconnected(err error) bool {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return false
	}
	switch portErr.Code() {
	case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
		return true
	}
	return false
}
