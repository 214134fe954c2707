package irq

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testLine Line = 5

func TestRaiseServicesHandler(t *testing.T) {
	c := NewController()
	var got []Line
	c.Register(testLine, func(l Line) { got = append(got, l) })

	require.True(t, c.Raise(testLine))
	require.True(t, c.Raise(testLine))
	require.False(t, c.Raise(testLine+1), "unregistered line")
	require.Equal(t, []Line{testLine, testLine}, got)
	require.Equal(t, Stats{Raised: 2, Serviced: 2}, c.LineStats(testLine))
}

func TestDisabledLineIgnored(t *testing.T) {
	c := NewController()
	var n int
	c.Register(testLine, func(Line) { n++ })
	c.DisableLine(testLine)
	require.False(t, c.Raise(testLine))
	c.EnableLine(testLine)
	require.True(t, c.Raise(testLine))
	require.Equal(t, 1, n)
	require.Equal(t, Stats{Raised: 2, Serviced: 1, Ignored: 1}, c.LineStats(testLine))
}

func TestMaskDefersRaise(t *testing.T) {
	c := NewController()
	var serviced int32
	c.Register(testLine, func(Line) { atomic.AddInt32(&serviced, 1) })

	outer := c.Disable()
	inner := c.Disable()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Raise(testLine)
	}()

	time.Sleep(20 * time.Millisecond)
	require.Zero(t, atomic.LoadInt32(&serviced), "handler ran inside critical section")

	c.Restore(inner)
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, atomic.LoadInt32(&serviced), "nested restore must keep mask")

	c.Restore(outer)
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("raise not serviced after restore")
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&serviced))
}

func TestCritical(t *testing.T) {
	c := NewController()
	var inside bool
	Critical(c, func() {
		inside = true
		require.Equal(t, 1, c.depth)
	})
	require.True(t, inside)
	require.Zero(t, c.depth)
}
