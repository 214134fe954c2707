package sh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/robotalks/picuart/pkg/board"
	"github.com/robotalks/picuart/pkg/firmware/msgs"
	fx "github.com/robotalks/picuart/pkg/framework"
	"github.com/robotalks/picuart/pkg/irq"
	"github.com/robotalks/picuart/pkg/uart"
)

// Session drives an in-process board from the shell. Bytes are injected on
// the wire and the firmware loop is stepped on demand.
type Session struct {
	Board   *board.Board
	Loop    *fx.Loop
	Capture *board.TxCapture

	cancel context.CancelFunc

	lock   sync.Mutex
	events []msgs.Reportable
}

// Status is the output of the stats command.
type Status struct {
	Ring uart.RingStats `json:"ring"`
	IRQ  irq.Stats      `json:"irq"`
	Baud int            `json:"baud"`
}

// NewSession powers up a board and boots the firmware.
func NewSession(conf *board.Config) (*Session, error) {
	b, err := conf.New()
	if err != nil {
		return nil, err
	}
	s := &Session{
		Board:   b,
		Loop:    fx.NewLoop(),
		Capture: b.NewTxCapture(),
	}
	s.Loop.Add(b)
	s.Loop.AddController(fx.PrLvReport, fx.ControlFunc(s.collect))

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	go s.Capture.Run(ctx)

	if err := b.Boot(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close stops the transmit capture.
func (s *Session) Close() error {
	s.cancel()
	return nil
}

func (s *Session) collect(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		if m, ok := mc.CurrentMessage().(msgs.Reportable); ok {
			mc.MessageTaken()
			s.lock.Lock()
			s.events = append(s.events, m)
			s.lock.Unlock()
		}
	}))
	return nil
}

// ParseBytes converts shell arguments into raw bytes. Arguments are joined
// with spaces and Go escapes like \n, \r, \x00 are honored.
func ParseBytes(args []string) ([]byte, error) {
	text := strings.Join(args, " ")
	unquoted, err := strconv.Unquote(`"` + strings.ReplaceAll(text, `"`, `\"`) + `"`)
	if err != nil {
		return nil, fmt.Errorf("invalid escape in %q", text)
	}
	return []byte(unquoted), nil
}

// Inject puts bytes on the receive wire, one interrupt per byte.
func (s *Session) Inject(data []byte) error {
	for _, b := range data {
		if err := s.Board.EUSART.Receive(b); err != nil {
			return err
		}
	}
	return nil
}

// Flood injects n copies of b.
func (s *Session) Flood(n int, b byte) error {
	if n < 0 {
		return errors.New("count must not be negative")
	}
	for i := 0; i < n; i++ {
		if err := s.Board.EUSART.Receive(b); err != nil {
			return err
		}
	}
	return nil
}

// Available returns the pending count or ErrDataLoss.
func (s *Session) Available() (int, error) {
	return s.Board.UART.Available()
}

// ReadByte consumes one byte.
func (s *Session) ReadByte() (byte, error) {
	return s.Board.UART.ReadByte()
}

// ReadLine consumes one line.
func (s *Session) ReadLine() ([]byte, error) {
	return s.Board.UART.NextLine()
}

// Reset clears the receive buffer.
func (s *Session) Reset() {
	s.Board.UART.Reset()
}

// Status returns the buffer and interrupt counters.
func (s *Session) Status() Status {
	return Status{
		Ring: s.Board.UART.Stats(),
		IRQ:  s.Board.IRQStats(),
		Baud: s.Board.EUSART.BaudRate(),
	}
}

// Poll runs n firmware loop iterations and returns the reported events.
func (s *Session) Poll(n int) []msgs.Reportable {
	for i := 0; i < n; i++ {
		s.Loop.RunOnce(context.Background())
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	events := s.events
	s.events = nil
	return events
}

// TakeTx returns what the firmware transmitted since the last call.
func (s *Session) TakeTx() []byte {
	return s.Capture.Take()
}
