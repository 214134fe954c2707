// Package uart implements an interrupt-fed serial receiver and a blocking
// byte transmitter.
//
// The receive path is a fixed 64-byte ring written only by the interrupt
// handler and read only by the foreground loop. Overflow is not prevented
// at the producer; it is reported to the consumer by Available as
// ErrDataLoss and cleared by Reset.
package uart

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/picuart/pkg/irq"
)

// Hardware is the serial peripheral driven by the UART.
type Hardware interface {
	TxRegister
	// ReadRx reads the receive register (RCREG).
	ReadRx() byte
	// Configure sets the baud rate and enables the transmitter and receiver.
	Configure(baud int) error
}

// UART couples the receive ring, the transmitter and the interrupt handler.
type UART struct {
	Transmitter

	Config Config

	hw     Hardware
	irqs   irq.Interrupts
	rx     RingBuffer
	notify chan struct{}
}

// New creates a UART. Init must be called before use.
func New(hw Hardware, irqs irq.Interrupts, conf Config) *UART {
	return &UART{
		Transmitter: Transmitter{
			Reg:          hw,
			Timeout:      conf.TxTimeout,
			PollInterval: conf.TxPollInterval,
		},
		Config: conf,
		hw:     hw,
		irqs:   irqs,
		notify: make(chan struct{}, 1),
	}
}

// NewUART creates a UART with the config.
func (c *Config) NewUART(hw Hardware, irqs irq.Interrupts) *UART {
	return New(hw, irqs, *c)
}

// Init configures the hardware, clears the receive buffer and installs the
// interrupt handler.
func (u *UART) Init() error {
	if err := u.Config.Validate(); err != nil {
		return err
	}
	if err := u.hw.Configure(u.Config.BaudRate); err != nil {
		return fmt.Errorf("configure serial hardware: %w", err)
	}
	u.Reset()
	u.irqs.Register(u.Config.Line, u.handleIRQ)
	glog.Infof("uart: %d baud 8N1, rx irq %d", u.Config.BaudRate, u.Config.Line)
	return nil
}

func (u *UART) handleIRQ(irq.Line) {
	u.HandleInterrupt()
}

// HandleInterrupt reads one byte from the receive register into the ring.
// It runs in interrupt context.
func (u *UART) HandleInterrupt() {
	u.rx.Produce(u.hw.ReadRx())
	select {
	case u.notify <- struct{}{}:
	default:
	}
}

// Readable returns a coalesced notification sent after bytes arrive.
// Receivers must re-check Available after waking.
func (u *UART) Readable() <-chan struct{} {
	return u.notify
}

// Available returns the number of buffered bytes or ErrDataLoss.
func (u *UART) Available() (int, error) {
	return u.rx.Available()
}

// Consume reads one byte. It implements Source.
func (u *UART) Consume() (byte, error) {
	return u.rx.Consume()
}

// ReadByte implements io.ByteReader.
func (u *UART) ReadByte() (byte, error) {
	return u.rx.Consume()
}

// ReadLine assembles one line into dst. See ReadLine.
func (u *UART) ReadLine(dst []byte) (int, error) {
	return ReadLine(&u.rx, dst)
}

// NextLine returns one freshly allocated line record.
func (u *UART) NextLine() ([]byte, error) {
	return NewLineReader(&u.rx).Next()
}

// Reset discards everything buffered and clears a data loss condition.
// The receive interrupt is masked while the ring is cleared.
func (u *UART) Reset() {
	irq.Critical(u.irqs, u.rx.Reset)
}

// Stats returns receive buffer counters.
func (u *UART) Stats() RingStats {
	return u.rx.Stats()
}

// WaitReadable blocks until a byte is buffered, data loss is pending, or
// ctx is done.
func (u *UART) WaitReadable(ctx context.Context) error {
	for {
		if n, err := u.Available(); err != nil || n > 0 {
			return nil
		}
		select {
		case <-u.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
