package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/picuart/pkg/board"
	fx "github.com/robotalks/picuart/pkg/framework"
	"github.com/robotalks/picuart/pkg/hw"
	"github.com/robotalks/picuart/pkg/hw/serialport"
	"github.com/robotalks/picuart/pkg/hw/websocket"
	"github.com/robotalks/picuart/pkg/telemetry"
)

var (
	listenAddr string
	mqttWire   bool
	listPorts  bool
)

func init() {
	board.SetupFlags()
	serialport.SetupFlags()
	telemetry.SetupFlags()
	flag.StringVar(&listenAddr, "listen", "", "Serve the wire over websocket on this address, e.g. :8080.")
	flag.BoolVar(&mqttWire, "mqtt-wire", false, "Carry the wire over the MQTT rx/tx topics.")
	flag.BoolVar(&listPorts, "list-ports", false, "List serial ports and exit.")
}

type stdio struct {
	io.Reader
	io.Writer
}

type httpServer struct {
	*http.Server
	ws *websocket.Server
}

func (s *httpServer) Run(ctx context.Context) error {
	err := fx.RunWithContextCloser(ctx, s.Server, func() error {
		glog.Infof("websocket wire listening on %s", s.Addr)
		return s.ListenAndServe()
	})
	s.ws.Close()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if listPorts {
		ports, err := serialport.List()
		if err != nil {
			glog.Exit(err)
		}
		for _, port := range ports {
			os.Stdout.WriteString(port + "\n")
		}
		return
	}

	b, err := board.NewConfig().New()
	if err != nil {
		glog.Exit(err)
	}

	runner := fx.NewRunner().HandleSignals()
	loop := fx.NewLoop().Add(b)

	tele := telemetry.NewConfig()
	if tele.Enabled() {
		q, err := tele.Dial()
		if err != nil {
			glog.Exitf("mqtt: %v", err)
		}
		defer q.Close()
		loop.Add(tele.NewReporter(q))
		if mqttWire {
			runner.Go(tele.NewWire(b.EUSART, q))
		}
	}

	port := serialport.NewConfig()
	switch {
	case port.Device != "":
		runner.Go(port.NewWire(b.EUSART))
	case listenAddr != "":
		ws := websocket.NewServer(b.EUSART)
		runner.Go(&httpServer{
			Server: &http.Server{Addr: listenAddr, Handler: ws.Handler()},
			ws:     ws,
		})
	case mqttWire && tele.Enabled():
		// attached above.
	default:
		runner.Go(hw.NewBridge(b.EUSART, stdio{Reader: os.Stdin, Writer: os.Stdout}))
	}

	runner.Go(fx.NamedRun("firmware", fx.RunFunc(func(ctx context.Context) error {
		if err := b.Boot(); err != nil {
			return err
		}
		return loop.Run(ctx)
	})))
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
