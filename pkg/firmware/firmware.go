// Package firmware is the foreground side of the device: it boots the UART,
// echoes received lines with the pending byte count and recovers from
// receive overflow.
package firmware

import (
	"context"
	"errors"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/picuart/pkg/firmware/msgs"
	fx "github.com/robotalks/picuart/pkg/framework"
	"github.com/robotalks/picuart/pkg/uart"
)

const (
	// Banner is written once the UART is up.
	Banner = "Startup ... done\n"
	// DataLossNotice is written before the receive buffer is reset.
	DataLossNotice = "Data Lost Reset UART\n"
)

// Port is what the firmware needs from the UART.
type Port interface {
	uart.Source
	ReadLine(dst []byte) (int, error)
	Reset()
	Stats() uart.RingStats
	Readable() <-chan struct{}

	WriteByte(byte) error
	WriteString(string) (int, error)
	WriteLine([]byte) error
	WriteNumber(int64) error
}

// Config defines the firmware behaviour.
type Config struct {
	// StatusEvery posts a Status message every N iterations, 0 disables it.
	StatusEvery uint64
}

var defaultConfig = Config{
	StatusEvery: 25,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.Uint64Var(&defaultConfig.StatusEvery, "status-every", defaultConfig.StatusEvery, "Report buffer status every N loop iterations, 0 disables.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Firmware wires the UART into the foreground loop.
type Firmware struct {
	Port        Port
	StatusEvery uint64

	line [uart.MaxLineLength]byte
}

// New creates the firmware on port.
func (c *Config) New(port Port) *Firmware {
	return &Firmware{Port: port, StatusEvery: c.StatusEvery}
}

// Boot announces the firmware is up.
func (f *Firmware) Boot() error {
	_, err := f.Port.WriteString(Banner)
	return err
}

// AddToLoop implements LoopAdder.
func (f *Firmware) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvService, fx.ControlFunc(f.echo))
	loop.AddController(fx.PrLvApp, fx.ControlFunc(f.reportStatus))
	loop.AddRunnable(fx.NamedRun("uart-wake", fx.RunFunc(f.wake)))
}

// Echo drains the receive buffer once: for every line it writes the
// pending count and the line, each followed by a line feed. On data loss it
// writes DataLossNotice and resets the buffer. It returns the events to
// report.
func (f *Firmware) Echo() ([]msgs.Reportable, error) {
	var events []msgs.Reportable
	for {
		pending, err := f.Port.Available()
		if errors.Is(err, uart.ErrDataLoss) {
			werr := f.notifyLoss()
			return append(events, f.resetAfterLoss()), werr
		}
		if err != nil {
			return events, err
		}
		if pending <= 0 {
			return events, nil
		}
		if err := f.Port.WriteNumber(int64(pending)); err != nil {
			return events, err
		}
		if err := f.Port.WriteByte('\n'); err != nil {
			return events, err
		}
		n, err := f.Port.ReadLine(f.line[:])
		line := append([]byte(nil), f.line[:n]...)
		events = append(events, &msgs.LineReceived{Data: line, Pending: uint32(pending)})
		if werr := f.Port.WriteLine(line); werr != nil {
			return events, werr
		}
		if err != nil && !errors.Is(err, uart.ErrDataLoss) {
			return events, err
		}
	}
}

func (f *Firmware) resetAfterLoss() msgs.Reportable {
	f.Port.Reset()
	stats := f.Port.Stats()
	glog.Warningf("receive overflow, %d bytes dropped so far; buffer reset", stats.Dropped)
	return &msgs.DataLoss{Dropped: stats.Dropped}
}

func (f *Firmware) notifyLoss() error {
	_, err := f.Port.WriteString(DataLossNotice)
	return err
}

// Status returns a snapshot of the receive buffer.
func (f *Firmware) Status() *msgs.Status {
	stats := f.Port.Stats()
	return &msgs.Status{
		Produced: stats.Produced,
		Consumed: stats.Consumed,
		Dropped:  stats.Dropped,
		Pending:  uint32(stats.Pending),
		Overflow: stats.Overflow,
	}
}

func (f *Firmware) echo(cc fx.ControlContext) error {
	events, err := f.Echo()
	for _, ev := range events {
		cc.Messages().AddMessages(ev)
	}
	return err
}

func (f *Firmware) reportStatus(cc fx.ControlContext) error {
	if f.StatusEvery > 0 && cc.Iteration()%f.StatusEvery == 0 {
		cc.Messages().AddMessages(f.Status())
	}
	return nil
}

// wake runs an iteration as soon as bytes arrive instead of waiting for
// the next period.
func (f *Firmware) wake(ctx context.Context) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.Port.Readable():
			loopCtl.TriggerNext()
		}
	}
}
