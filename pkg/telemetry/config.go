// Package telemetry reports firmware events over MQTT and can carry the
// serial wire itself over MQTT topics.
//
// Topics are relative to the broker URL path prefix:
//
//	<device>/line      LineReceived
//	<device>/dataloss  DataLoss
//	<device>/status    Status
//	<device>/rx        bytes to receive
//	<device>/tx        bytes transmitted
package telemetry

import (
	"errors"
	"flag"
	"os"

	"github.com/denisbrodbeck/machineid"
)

const appID = "picuart"

// Config defines the MQTT connection.
type Config struct {
	// BrokerURL is like mqtt://host:port/topic-prefix/, empty disables
	// telemetry.
	BrokerURL string
	// DeviceID is the topic segment identifying this device.
	DeviceID string
}

var defaultConfig = Config{}

func init() {
	if val := os.Getenv("PICUART_MQTT_URL"); val != "" {
		defaultConfig.BrokerURL = val
	}
	if val := os.Getenv("PICUART_DEVICE_ID"); val != "" {
		defaultConfig.DeviceID = val
	} else {
		defaultConfig.DeviceID = MachineID()
	}
}

// MachineID returns an application specific ID of the host, or the
// application name if the host has none.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		return appID
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt", defaultConfig.BrokerURL, "MQTT broker URL, e.g. mqtt://localhost:1883/picuart/")
	flag.StringVar(&defaultConfig.DeviceID, "device-id", defaultConfig.DeviceID, "Device ID used in topics")
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

// Enabled reports whether a broker is configured.
func (c *Config) Enabled() bool {
	return c.BrokerURL != ""
}

// Topic returns the topic of suffix under this device.
func (c *Config) Topic(suffix string) string {
	return c.DeviceID + "/" + suffix
}

// Dial creates the queue and waits for the first connection.
func (c *Config) Dial() (*Queue, error) {
	if !c.Enabled() {
		return nil, errors.New("mqtt broker URL not specified")
	}
	if c.DeviceID == "" {
		return nil, errors.New("device id must be specified")
	}
	q, err := NewQueueFromURL(c.BrokerURL)
	if err != nil {
		return nil, err
	}
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	return q, nil
}
