package sh

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/picuart/pkg/board"
	"github.com/robotalks/picuart/pkg/firmware/msgs"
	"github.com/robotalks/picuart/pkg/uart"
)

// Shell provides ishell backed interactive shell over a Session.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell   *ishell.Shell
	Session *Session
}

const (
	shellKey = "$shell"
	prompt   = "picuart > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&RxCmd,
		&FloodCmd,
		&AvailCmd,
		&ReadCmd,
		&LineCmd,
		&ResetCmd,
		&StatsCmd,
		&PollCmd,
		&TxCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(session *Session) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:   ishell.New(),
		Session: session,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Print prints v as JSON when requested, otherwise as text.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if !s.OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Run runs the shell. With args, only those are evaluated.
func (s *Shell) Run(args ...string) {
	defer s.Session.Close()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Printf("%s", s.Session.TakeTx())
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func intArg(c *ishell.Context, index, defaultVal int) (int, error) {
	if len(c.Args) <= index {
		return defaultVal, nil
	}
	return strconv.Atoi(c.Args[index])
}

// FormatEvent renders a reported message for display.
func FormatEvent(m msgs.Reportable) string {
	switch ev := m.(type) {
	case *msgs.LineReceived:
		return fmt.Sprintf("line %q (pending %d)", ev.Data, ev.Pending)
	case *msgs.DataLoss:
		return fmt.Sprintf("data loss (%d dropped)", ev.Dropped)
	default:
		return m.Topic() + " " + m.String()
	}
}

type eventJSON struct {
	Topic   string          `json:"topic"`
	Message msgs.Reportable `json:"message"`
}

var (
	// RxCmd puts bytes on the receive wire.
	RxCmd = ishell.Cmd{
		Name: "rx",
		Help: `TEXT, Go escapes allowed, e.g. rx hello\n`,
		Func: func(c *ishell.Context) {
			data, err := ParseBytes(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).Session.Inject(data); err != nil {
				c.Err(err)
			}
		},
	}

	// FloodCmd injects many bytes without consuming.
	FloodCmd = ishell.Cmd{
		Name: "flood",
		Help: "[COUNT] [CHAR], defaults to 65 x",
		Func: func(c *ishell.Context) {
			n, err := intArg(c, 0, uart.BufferSize+1)
			if err != nil {
				c.Err(err)
				return
			}
			ch := byte('x')
			if len(c.Args) > 1 && len(c.Args[1]) > 0 {
				ch = c.Args[1][0]
			}
			if err := ShellFrom(c).Session.Flood(n, ch); err != nil {
				c.Err(err)
			}
		},
	}

	// AvailCmd prints the pending count.
	AvailCmd = ishell.Cmd{
		Name:    "avail",
		Aliases: []string{"a"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			n, err := s.Session.Available()
			if errors.Is(err, uart.ErrDataLoss) {
				s.Print(c, map[string]interface{}{"available": -1, "dataLoss": true}, "data loss")
				return
			}
			s.Print(c, map[string]interface{}{"available": n}, strconv.Itoa(n))
		},
	}

	// ReadCmd consumes one byte.
	ReadCmd = ishell.Cmd{
		Name: "read",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			b, err := s.Session.ReadByte()
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, map[string]int{"byte": int(b)}, fmt.Sprintf("%q 0x%02x", b, b))
		},
	}

	// LineCmd assembles one line.
	LineCmd = ishell.Cmd{
		Name:    "line",
		Aliases: []string{"l"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			line, err := s.Session.ReadLine()
			if err != nil {
				c.Err(err)
			}
			s.Print(c, map[string]string{"line": string(line)}, strconv.Quote(string(line)))
		},
	}

	// ResetCmd clears the receive buffer.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Session.Reset()
		},
	}

	// StatsCmd prints counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			st := s.Session.Status()
			s.Print(c, st, fmt.Sprintf(
				"baud %d produced %d consumed %d dropped %d pending %d overflow %v irq %d/%d",
				st.Baud, st.Ring.Produced, st.Ring.Consumed, st.Ring.Dropped,
				st.Ring.Pending, st.Ring.Overflow, st.IRQ.Serviced, st.IRQ.Raised))
		},
	}

	// PollCmd steps the firmware loop.
	PollCmd = ishell.Cmd{
		Name:    "poll",
		Aliases: []string{"p"},
		Help:    "[ITERATIONS]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			n, err := intArg(c, 0, 1)
			if err != nil {
				c.Err(err)
				return
			}
			events := s.Session.Poll(n)
			if s.OutputJSON {
				out := make([]eventJSON, 0, len(events))
				for _, ev := range events {
					out = append(out, eventJSON{Topic: ev.Topic(), Message: ev})
				}
				s.Print(c, out, "")
				return
			}
			for _, ev := range events {
				c.Println(FormatEvent(ev))
			}
		},
	}

	// TxCmd prints what the firmware transmitted.
	TxCmd = ishell.Cmd{
		Name: "tx",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			out := s.Session.TakeTx()
			s.Print(c, map[string]string{"tx": string(out)}, string(out))
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	session, err := NewSession(board.NewConfig())
	if err != nil {
		log.Fatalln(err)
	}
	New(session).Run(flag.Args()...)
}
