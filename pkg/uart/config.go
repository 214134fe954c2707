package uart

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/picuart/pkg/irq"
)

// BaudRates lists the supported baud rates.
var BaudRates = []int{9600, 19200, 38400}

// LineRX is the default interrupt line of the receiver.
const LineRX irq.Line = 5

// Config defines the UART settings. The frame format is fixed to 8N1.
type Config struct {
	BaudRate int
	// Line is the receive interrupt line.
	Line irq.Line
	// TxTimeout bounds the wait for the transmitter. Zero blocks forever.
	TxTimeout time.Duration
	// TxPollInterval is the sleep between transmitter readiness checks.
	TxPollInterval time.Duration
}

var defaultConfig = Config{
	BaudRate: 9600,
	Line:     LineRX,
}

func init() {
	if val := os.Getenv("PICUART_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.BaudRate = baud
		}
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "UART baud rate (9600, 19200, 38400).")
	flag.DurationVar(&defaultConfig.TxTimeout, "tx-timeout", defaultConfig.TxTimeout, "Transmit timeout per byte, 0 blocks forever.")
	flag.DurationVar(&defaultConfig.TxPollInterval, "tx-poll", defaultConfig.TxPollInterval, "Transmitter readiness poll interval.")
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

// ValidBaudRate reports whether baud is supported.
func ValidBaudRate(baud int) bool {
	for _, r := range BaudRates {
		if r == baud {
			return true
		}
	}
	return false
}

// Validate checks the config.
func (c *Config) Validate() error {
	if !ValidBaudRate(c.BaudRate) {
		return &BaudRateError{BaudRate: c.BaudRate}
	}
	return nil
}
