package main

import (
	"flag"
	"log"
	"path"
	"reflect"
	"strconv"

	"github.com/robotalks/picuart/pkg/firmware/msgs"
	"github.com/robotalks/picuart/pkg/telemetry"
)

func init() {
	telemetry.SetupFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := telemetry.NewConfig()
	q, err := conf.Dial()
	if err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	q.Sub("+/+", telemetry.Handler(func(topic string, payload []byte) {
		switch suffix := path.Base(topic); suffix {
		case "rx", "tx":
			log.Printf("%s: %s", topic, strconv.Quote(string(payload)))
		default:
			msg, err := msgs.Decode(suffix, payload)
			if err != nil {
				log.Printf("%s: bad message: %v", topic, err)
				return
			}
			log.Printf("%s: [%s] %s", topic,
				reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
				msg.String())
		}
	}))
	<-(chan struct{})(nil)
}
