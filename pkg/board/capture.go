package board

import (
	"bytes"
	"context"
	"sync"

	"github.com/robotalks/picuart/pkg/hw"
)

// TxCapture collects transmitted bytes when no wire is attached.
type TxCapture struct {
	Device *hw.EUSART

	lock sync.Mutex
	buf  bytes.Buffer
}

// NewTxCapture creates a TxCapture on the board transmitter.
func (b *Board) NewTxCapture() *TxCapture {
	return &TxCapture{Device: b.EUSART}
}

// Run implements Runnable.
func (c *TxCapture) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.Device.Transmitted():
			c.drain()
		}
	}
}

func (c *TxCapture) drain() {
	c.lock.Lock()
	defer c.lock.Unlock()
	for {
		b, ok := c.Device.Shift()
		if !ok {
			return
		}
		c.buf.WriteByte(b)
	}
}

// Take returns and clears everything transmitted so far.
func (c *TxCapture) Take() []byte {
	c.drain()
	c.lock.Lock()
	defer c.lock.Unlock()
	out := append([]byte(nil), c.buf.Bytes()...)
	c.buf.Reset()
	return out
}
