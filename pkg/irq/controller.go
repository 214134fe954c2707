// Package irq provides a host-side interrupt controller.
//
// Hardware models (see package hw) raise interrupt lines from their own
// goroutine, which plays the role of interrupt context. Handlers run to
// completion on the raising goroutine, one at a time, and never while the
// foreground holds the controller masked.
package irq

import (
	"sync"

	"github.com/golang/glog"
)

// Line identifies an interrupt source.
type Line int

// Handler services an interrupt. It must not block.
type Handler func(Line)

// State is returned by Disable and must be passed back to Restore.
type State int

// Mask is the critical-section primitive used by foreground code.
// Disable/Restore pairs may nest.
type Mask interface {
	Disable() State
	Restore(State)
}

// Interrupts is the part of a controller drivers need: registration
// plus masking.
type Interrupts interface {
	Mask
	Register(Line, Handler)
}

// Stats counts activity on a line.
type Stats struct {
	Raised   uint64
	Serviced uint64
	Ignored  uint64
}

type vector struct {
	handler Handler
	enabled bool
	stats   Stats
}

// Controller dispatches interrupts and implements Mask.
type Controller struct {
	// exec is held while a handler runs and while the foreground is masked.
	exec sync.Mutex
	// depth is only touched by the foreground goroutine holding exec.
	depth int

	vectorsLock sync.RWMutex
	vectors     map[Line]*vector
}

// NewController creates a Controller with no lines registered.
func NewController() *Controller {
	return &Controller{vectors: make(map[Line]*vector)}
}

// Register installs the handler for a line and enables it.
func (c *Controller) Register(line Line, h Handler) {
	c.vectorsLock.Lock()
	defer c.vectorsLock.Unlock()
	if c.vectors == nil {
		c.vectors = make(map[Line]*vector)
	}
	v := c.vectors[line]
	if v == nil {
		v = &vector{}
		c.vectors[line] = v
	}
	v.handler, v.enabled = h, h != nil
	glog.V(2).Infof("irq %d registered", line)
}

// EnableLine unmasks a single line.
func (c *Controller) EnableLine(line Line) {
	c.setEnabled(line, true)
}

// DisableLine masks a single line. Raises on a disabled line are ignored.
func (c *Controller) DisableLine(line Line) {
	c.setEnabled(line, false)
}

func (c *Controller) setEnabled(line Line, en bool) {
	c.vectorsLock.Lock()
	if v := c.vectors[line]; v != nil {
		v.enabled = en && v.handler != nil
	}
	c.vectorsLock.Unlock()
}

// Raise asserts a line and services it before returning. If the foreground
// is inside a critical section, Raise waits for Restore, as a latched
// interrupt flag would. It returns false if no enabled handler exists.
func (c *Controller) Raise(line Line) bool {
	c.exec.Lock()
	defer c.exec.Unlock()

	c.vectorsLock.Lock()
	v := c.vectors[line]
	if v == nil {
		c.vectorsLock.Unlock()
		return false
	}
	v.stats.Raised++
	if !v.enabled {
		v.stats.Ignored++
		c.vectorsLock.Unlock()
		return false
	}
	h := v.handler
	c.vectorsLock.Unlock()

	h(line)

	c.vectorsLock.Lock()
	v.stats.Serviced++
	c.vectorsLock.Unlock()
	return true
}

// Disable implements Mask.
func (c *Controller) Disable() State {
	if c.depth == 0 {
		c.exec.Lock()
	}
	state := State(c.depth)
	c.depth++
	return state
}

// Restore implements Mask.
func (c *Controller) Restore(state State) {
	c.depth = int(state)
	if c.depth == 0 {
		c.exec.Unlock()
	}
}

// LineStats returns the counters of a line.
func (c *Controller) LineStats(line Line) Stats {
	c.vectorsLock.RLock()
	defer c.vectorsLock.RUnlock()
	if v := c.vectors[line]; v != nil {
		return v.stats
	}
	return Stats{}
}

// Critical runs fn with interrupts masked.
func Critical(m Mask, fn func()) {
	state := m.Disable()
	defer m.Restore(state)
	fn()
}
