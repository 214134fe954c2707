package telemetry

import (
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/picuart/pkg/firmware/msgs"
	fx "github.com/robotalks/picuart/pkg/framework"
)

// Publisher publishes payloads to topics relative to its prefix.
type Publisher interface {
	Pub(topic string, payload []byte) paho.Token
}

// Reporter publishes the reportable messages of each loop iteration.
type Reporter struct {
	Pub    Publisher
	Config *Config
}

// NewReporter creates a Reporter.
func (c *Config) NewReporter(pub Publisher) *Reporter {
	return &Reporter{Pub: pub, Config: c}
}

// AddToLoop implements LoopAdder.
func (r *Reporter) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvReport, r)
}

// Control implements Controller.
func (r *Reporter) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		msg, ok := mc.CurrentMessage().(msgs.Reportable)
		if !ok {
			return
		}
		mc.MessageTaken()
		r.Report(msg)
	}))
	return nil
}

// Report publishes one message without waiting for delivery.
func (r *Reporter) Report(msg msgs.Reportable) {
	payload, err := msgs.Encode(msg)
	if err != nil {
		glog.Errorf("encode %s: %v", msg.Topic(), err)
		return
	}
	r.Pub.Pub(r.Config.Topic(msg.Topic()), payload)
}
