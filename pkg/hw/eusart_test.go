package hw

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/picuart/pkg/irq"
)

const testLine irq.Line = 5

type captured struct {
	lock sync.Mutex
	data []byte
}

func (c *captured) bytes() []byte {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]byte(nil), c.data...)
}

func newTestDevice(t *testing.T) (*EUSART, *captured) {
	ctl := irq.NewController()
	dev := NewEUSART(ctl, testLine)
	rx := &captured{}
	ctl.Register(testLine, func(irq.Line) {
		rx.lock.Lock()
		rx.data = append(rx.data, dev.ReadRx())
		rx.lock.Unlock()
	})
	require.NoError(t, dev.Configure(9600))
	return dev, rx
}

func TestSPBRG(t *testing.T) {
	testCases := map[int]byte{9600: 51, 19200: 25, 38400: 12}
	for baud, expect := range testCases {
		v, err := SPBRG(baud)
		require.NoError(t, err)
		require.Equalf(t, expect, v, "baud %d", baud)
	}
	_, err := SPBRG(115200)
	require.ErrorIs(t, err, ErrUnsupportedBaud)
}

func TestEUSARTConfigure(t *testing.T) {
	dev := NewEUSART(irq.NewController(), testLine)
	require.ErrorIs(t, dev.Receive('x'), ErrNotConfigured)
	require.False(t, dev.TxReady())

	require.Error(t, dev.Configure(4800))
	require.NoError(t, dev.Configure(19200))
	require.Equal(t, 19200, dev.BaudRate())
	require.EqualValues(t, 25, dev.Divisor())
	require.True(t, dev.TxReady())
}

func TestEUSARTReceiveRaisesInterrupt(t *testing.T) {
	dev, rx := newTestDevice(t)
	for _, c := range []byte("abc") {
		require.NoError(t, dev.Receive(c))
	}
	require.Equal(t, []byte("abc"), rx.bytes())
	require.Equal(t, irq.Stats{Raised: 3, Serviced: 3}, dev.IRQ.LineStats(testLine))
}

func TestEUSARTTransmitDepth(t *testing.T) {
	dev, _ := newTestDevice(t)
	require.True(t, dev.TxReady())
	dev.WriteTx('1')
	require.True(t, dev.TxReady())
	dev.WriteTx('2')
	require.False(t, dev.TxReady(), "TXREG and shift register full")
	dev.WriteTx('3') // overwritten, dropped

	select {
	case <-dev.Transmitted():
	default:
		t.Fatal("no transmit notification")
	}
	var out []byte
	for {
		c, ok := dev.Shift()
		if !ok {
			break
		}
		out = append(out, c)
	}
	require.Equal(t, []byte("12"), out)
	require.True(t, dev.TxReady())
}

func TestCharTime(t *testing.T) {
	require.Equal(t, 1041666*time.Nanosecond, CharTime(9600))
	require.Zero(t, CharTime(0))
}

func TestBridge(t *testing.T) {
	dev, rx := newTestDevice(t)
	local, remote := net.Pipe()
	bridge := NewBridge(dev, local)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- bridge.Run(ctx) }()

	_, err := remote.Write([]byte("ping\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return string(rx.bytes()) == "ping\n"
	}, time.Second, 5*time.Millisecond)

	go func() {
		for _, c := range []byte("pong") {
			for !dev.TxReady() {
				time.Sleep(time.Millisecond)
			}
			dev.WriteTx(c)
		}
	}()
	buf := make([]byte, 4)
	remote.SetReadDeadline(time.Now().Add(time.Second))
	_, err = io.ReadFull(remote, buf)
	require.NoError(t, err)
	require.Equal(t, "pong", string(buf))

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop")
	}
}

func TestBridgeStopsOnEOF(t *testing.T) {
	dev, _ := newTestDevice(t)
	local, remote := net.Pipe()
	errCh := make(chan error, 1)
	go func() { errCh <- NewBridge(dev, local).Run(context.Background()) }()
	remote.Close()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop on EOF")
	}
}
