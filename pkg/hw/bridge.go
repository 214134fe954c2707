package hw

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/picuart/pkg/framework"
)

// CharTime is the time one 8N1 character occupies on the wire.
func CharTime(baud int) time.Duration {
	if baud <= 0 {
		return 0
	}
	return 10 * time.Second / time.Duration(baud)
}

// Bridge connects the peripheral to a byte stream: bytes read from Port are
// received by the device, transmitted bytes are written to Port.
type Bridge struct {
	Device *EUSART
	Port   io.ReadWriter
	// Paced spaces transmitted bytes one character time apart.
	Paced bool
}

// NewBridge creates a Bridge.
func NewBridge(dev *EUSART, port io.ReadWriter) *Bridge {
	return &Bridge{Device: dev, Port: port}
}

// Run implements Runnable. It returns when either direction fails or ctx
// is done. A Port implementing io.Closer is closed on return.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	txErr := make(chan error, 1)
	go func() {
		txErr <- b.transmit(ctx)
	}()

	var err error
	if closer, ok := b.Port.(io.Closer); ok {
		err = fx.RunWithContextCloser(ctx, closer, b.receive)
	} else {
		err = fx.RunWithContext(ctx, b.receive)
	}
	cancel()
	if e := <-txErr; err == nil && e != context.Canceled {
		err = e
	}
	return err
}

func (b *Bridge) receive() error {
	buf := make([]byte, 64)
	for {
		n, err := b.Port.Read(buf)
		for _, c := range buf[:n] {
			glog.V(4).Infof("RX %02x", c)
			if e := b.Device.Receive(c); e != nil {
				return e
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (b *Bridge) transmit(ctx context.Context) error {
	out := make([]byte, 0, TxDepth)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.Device.Transmitted():
		}
		for {
			c, ok := b.Device.Shift()
			if !ok {
				break
			}
			if b.Paced {
				time.Sleep(CharTime(b.Device.BaudRate()))
			}
			out = append(out[:0], c)
			if _, err := b.Port.Write(out); err != nil {
				return err
			}
		}
	}
}
