package sh

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/picuart/pkg/board"
	"github.com/robotalks/picuart/pkg/firmware"
	"github.com/robotalks/picuart/pkg/firmware/msgs"
	"github.com/robotalks/picuart/pkg/uart"
)

func newTestSession(t *testing.T) *Session {
	s, err := NewSession(board.NewConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.Equal(t, firmware.Banner, string(s.TakeTx()))
	return s
}

func TestParseBytes(t *testing.T) {
	data, err := ParseBytes([]string{`hello`, `world\n`})
	require.NoError(t, err)
	require.Equal(t, "hello world\n", string(data))

	data, err = ParseBytes([]string{`a\x00b\r`})
	require.NoError(t, err)
	require.Equal(t, []byte{'a', 0, 'b', '\r'}, data)

	data, err = ParseBytes([]string{`say "hi"`})
	require.NoError(t, err)
	require.Equal(t, `say "hi"`, string(data))

	_, err = ParseBytes([]string{`bad\q`})
	require.Error(t, err)
}

func TestSessionPollEchoes(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Inject([]byte("hi\n")))
	n, err := s.Available()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	events := s.Poll(1)
	require.Equal(t, []msgs.Reportable{&msgs.LineReceived{Data: []byte("hi"), Pending: 3}}, events)
	require.Equal(t, "3\nhi\n", string(s.TakeTx()))
	require.Empty(t, s.Poll(1))
}

func TestSessionFloodAndReset(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Flood(uart.BufferSize+1, 'x'))
	_, err := s.Available()
	require.ErrorIs(t, err, uart.ErrDataLoss)

	st := s.Status()
	require.EqualValues(t, 1, st.Ring.Dropped)
	require.True(t, st.Ring.Overflow)
	require.EqualValues(t, uart.BufferSize+1, st.IRQ.Serviced)

	s.Reset()
	n, err := s.Available()
	require.NoError(t, err)
	require.Zero(t, n)
	_, err = s.ReadByte()
	require.ErrorIs(t, err, uart.ErrEmptyBuffer)
}

func TestSessionPollDataLoss(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Flood(70, 'y'))
	events := s.Poll(1)
	require.Equal(t, []msgs.Reportable{&msgs.DataLoss{Dropped: 6}}, events)
	require.Equal(t, firmware.DataLossNotice, string(s.TakeTx()))
}

func TestSessionReadLine(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Inject([]byte(strings.Repeat("k", 10)+"\rrest")))
	line, err := s.ReadLine()
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("k", 10), string(line))
	b, err := s.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('r'), b)
}

func TestFormatEvent(t *testing.T) {
	require.Equal(t, `line "ok" (pending 3)`, FormatEvent(&msgs.LineReceived{Data: []byte("ok"), Pending: 3}))
	require.Equal(t, "data loss (2 dropped)", FormatEvent(&msgs.DataLoss{Dropped: 2}))
}
