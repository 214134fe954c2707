package serialport

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/picuart/pkg/hw"
)

// DefaultRetryInterval is the wait before reopening a lost device.
const DefaultRetryInterval = time.Second

// Wire bridges the device to the serial port. Once the port was opened,
// failures are retried, e.g. an unplugged USB adapter.
type Wire struct {
	Config        *Config
	Device        *hw.EUSART
	RetryInterval time.Duration
}

// NewWire creates a Wire. The port runs at the device baud rate.
func (c *Config) NewWire(dev *hw.EUSART) *Wire {
	return &Wire{Config: c, Device: dev, RetryInterval: DefaultRetryInterval}
}

// Name implements Named.
func (w *Wire) Name() string {
	return "serial:" + w.Config.Device
}

// Run implements Runnable.
func (w *Wire) Run(ctx context.Context) error {
	conf := *w.Config
	if baud := w.Device.BaudRate(); baud > 0 {
		conf.BaudRate = baud
	}
	opened := false
	for {
		port, err := conf.Open()
		if err != nil && !opened {
			return err
		}
		if err == nil {
			opened = true
			glog.Infof("serial wire %s opened at %d baud", conf.Device, conf.BaudRate)
			bridge := hw.NewBridge(w.Device, port)
			bridge.Paced = true
			err = bridge.Run(ctx)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if IsDisconnected(err) {
			glog.Warningf("serial wire %s disconnected", conf.Device)
		}
		glog.Warningf("serial wire %s lost, retry in %s: %v", conf.Device, w.RetryInterval, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.RetryInterval):
		}
	}
}
