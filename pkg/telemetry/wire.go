package telemetry

import (
	"context"

	"github.com/golang/glog"
)

// Device is the wire side of the serial peripheral.
type Device interface {
	Receive(b byte) error
	Shift() (byte, bool)
	Transmitted() <-chan struct{}
}

// PubSub is the part of Queue the wire uses.
type PubSub interface {
	Publisher
	Sub(pattern string, handler Handler) *Subscription
}

// Wire carries the serial line over MQTT: payloads on <device>/rx are
// received byte by byte, transmitted bytes are published on <device>/tx.
type Wire struct {
	Device Device
	Queue  PubSub
	Config *Config
}

// NewWire creates a Wire.
func (c *Config) NewWire(dev Device, q PubSub) *Wire {
	return &Wire{Device: dev, Queue: q, Config: c}
}

// Run implements Runnable.
func (w *Wire) Run(ctx context.Context) error {
	sub := w.Queue.Sub(w.Config.Topic("rx"), w.HandleRx)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.Device.Transmitted():
			w.FlushTx()
		}
	}
}

// HandleRx delivers payload to the receiver.
func (w *Wire) HandleRx(_ string, payload []byte) {
	for n, b := range payload {
		if err := w.Device.Receive(b); err != nil {
			glog.Warningf("mqtt wire: %d of %d bytes discarded: %v", len(payload)-n, len(payload), err)
			return
		}
	}
}

// FlushTx publishes the bytes waiting on the transmitter, if any.
func (w *Wire) FlushTx() {
	var out []byte
	for {
		b, ok := w.Device.Shift()
		if !ok {
			break
		}
		out = append(out, b)
	}
	if len(out) > 0 {
		w.Queue.Pub(w.Config.Topic("tx"), out)
	}
}
