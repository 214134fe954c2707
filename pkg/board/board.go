// Package board assembles the simulated microcontroller: interrupt
// controller, EUSART, UART driver and firmware.
package board

import (
	"github.com/robotalks/picuart/pkg/firmware"
	fx "github.com/robotalks/picuart/pkg/framework"
	"github.com/robotalks/picuart/pkg/hw"
	"github.com/robotalks/picuart/pkg/irq"
	"github.com/robotalks/picuart/pkg/uart"
)

// Config collects the configs of the board parts.
type Config struct {
	UART     *uart.Config
	Firmware *firmware.Config
}

// SetupFlags sets command line flags of all parts.
func SetupFlags() {
	uart.SetupFlags()
	firmware.SetupFlags()
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	return &Config{
		UART:     uart.NewConfig(),
		Firmware: firmware.NewConfig(),
	}
}

// Board is a powered-up device.
type Board struct {
	IRQ      *irq.Controller
	EUSART   *hw.EUSART
	UART     *uart.UART
	Firmware *firmware.Firmware
}

// New creates the board and initializes the UART. The startup banner is
// not written; call Boot once something drains the transmitter.
func (c *Config) New() (*Board, error) {
	b := &Board{IRQ: irq.NewController()}
	b.EUSART = hw.NewEUSART(b.IRQ, c.UART.Line)
	b.UART = c.UART.NewUART(b.EUSART, b.IRQ)
	if err := b.UART.Init(); err != nil {
		return nil, err
	}
	b.Firmware = c.Firmware.New(b.UART)
	return b, nil
}

// Boot writes the startup banner.
func (b *Board) Boot() error {
	return b.Firmware.Boot()
}

// AddToLoop implements LoopAdder.
func (b *Board) AddToLoop(loop *fx.Loop) {
	loop.Add(b.Firmware)
}

// IRQStats returns the counters of the receive interrupt line.
func (b *Board) IRQStats() irq.Stats {
	return b.IRQ.LineStats(b.UART.Config.Line)
}
