// Package websocket exposes the simulated wire over websocket connections.
package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/picuart/pkg/hw"
)

// Server bridges one websocket client at a time to the device. A new
// client replaces the previous one.
type Server struct {
	Device *hw.EUSART

	lock   sync.Mutex
	cancel context.CancelFunc
}

// NewServer creates a Server.
func NewServer(dev *hw.EUSART) *Server {
	return &Server{Device: dev}
}

// Handler returns the http.Handler accepting websocket clients.
func (s *Server) Handler() http.Handler {
	return websocket.Handler(s.serve)
}

func (s *Server) serve(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	ctx, cancel := context.WithCancel(conn.Request().Context())
	s.lock.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.lock.Unlock()

	glog.Infof("websocket wire connected: %s", conn.Request().RemoteAddr)
	err := hw.NewBridge(s.Device, conn).Run(ctx)
	glog.Infof("websocket wire disconnected: %v", err)
	cancel()
}

// Close disconnects the current client.
func (s *Server) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}
