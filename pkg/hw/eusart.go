// Package hw models the serial peripheral the firmware drives.
//
// EUSART mirrors the registers the driver touches: RCREG (receive), TXREG
// with its shift register (transmit, two bytes deep) and the TXIF ready flag.
// The wire side injects received bytes and drains transmitted ones.
package hw

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"github.com/golang/glog"

	"github.com/robotalks/picuart/pkg/irq"
)

// Oscillator frequency of the modelled part.
const Fosc = 8000000

// TxDepth is the number of bytes the transmitter holds: TXREG plus the
// transmit shift register.
const TxDepth = 2

var (
	// ErrUnsupportedBaud indicates the SPBRG cannot produce the rate.
	ErrUnsupportedBaud = errors.New("unsupported baud rate")
	// ErrNotConfigured indicates the peripheral is not enabled.
	ErrNotConfigured = errors.New("serial port not configured")
)

var spbrgTable = map[int]byte{
	9600:  51,
	19200: 25,
	38400: 12,
}

// SPBRG returns the baud rate generator value for BRGH=1 at Fosc.
func SPBRG(baud int) (byte, error) {
	if v, ok := spbrgTable[baud]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedBaud, baud)
}

// EUSART is the simulated serial peripheral.
type EUSART struct {
	IRQ  *irq.Controller
	Line irq.Line

	// wire serialises Receive: one byte is on the line at a time, and rcreg
	// is only touched by the goroutine holding it.
	wire  sync.Mutex
	rcreg byte

	lock    sync.Mutex
	baud    int
	spbrg   byte
	enabled bool
	tx      *queue.Queue
	txReady chan struct{}
}

// NewEUSART creates a peripheral raising line on the controller.
func NewEUSART(c *irq.Controller, line irq.Line) *EUSART {
	return &EUSART{
		IRQ:     c,
		Line:    line,
		tx:      queue.New(),
		txReady: make(chan struct{}, 1),
	}
}

// Configure sets the baud rate generator and enables TX/RX in 8N1.
func (p *EUSART) Configure(baud int) error {
	spbrg, err := SPBRG(baud)
	if err != nil {
		return err
	}
	p.lock.Lock()
	p.baud, p.spbrg, p.enabled = baud, spbrg, true
	p.lock.Unlock()
	glog.V(2).Infof("eusart: SPBRG=%d BRGH=1 (%d baud)", spbrg, baud)
	return nil
}

// BaudRate returns the configured rate, 0 if not configured.
func (p *EUSART) BaudRate() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.baud
}

// Divisor returns the SPBRG register value.
func (p *EUSART) Divisor() byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.spbrg
}

// Receive latches b into RCREG and raises the receive interrupt. It runs
// the handler before returning.
func (p *EUSART) Receive(b byte) error {
	p.lock.Lock()
	enabled := p.enabled
	p.lock.Unlock()
	if !enabled {
		return ErrNotConfigured
	}
	p.wire.Lock()
	defer p.wire.Unlock()
	p.rcreg = b
	p.IRQ.Raise(p.Line)
	return nil
}

// ReadRx returns RCREG.
func (p *EUSART) ReadRx() byte {
	return p.rcreg
}

// TxReady reports TXIF.
func (p *EUSART) TxReady() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.enabled && p.tx.Length() < TxDepth
}

// WriteTx loads TXREG. Bytes written while not ready are dropped, as the
// hardware would overwrite TXREG.
func (p *EUSART) WriteTx(b byte) {
	p.lock.Lock()
	if p.tx.Length() < TxDepth {
		p.tx.Add(b)
	} else {
		glog.Warningf("eusart: TXREG overwritten")
	}
	p.lock.Unlock()
	select {
	case p.txReady <- struct{}{}:
	default:
	}
}

// Shift takes the oldest transmitted byte off the wire.
func (p *EUSART) Shift() (byte, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.tx.Length() == 0 {
		return 0, false
	}
	return p.tx.Remove().(byte), true
}

// Transmitted signals, coalesced, that bytes are waiting in Shift.
func (p *EUSART) Transmitted() <-chan struct{} {
	return p.txReady
}
