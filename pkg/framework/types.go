package framework

import (
	"context"
	"time"
)

// Named is implemented by things with a name.
type Named interface {
	Name() string
}

// Runnable is a background activity bound to a context.
type Runnable interface {
	Run(context.Context) error
}

// Message is a unit of data handed between controllers through the loop.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// Controller is invoked once per loop iteration.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// ControlContext describes the current iteration.
type ControlContext interface {
	// Context retrieves context.Context of the loop.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// Iteration is the sequence number of the iteration, starting at 1.
	Iteration() uint64
	// PriorityLevel is the level of the running controller.
	PriorityLevel() int
	// Messages holds the messages of this iteration.
	Messages() MessageStore

	LoopControl
}

// LoopControl exposes the loop to controllers and runnables.
type LoopControl interface {
	// PostMessage queues a message for the next iteration.
	PostMessage(Message)
	// TriggerNext runs the next iteration without waiting for the interval.
	TriggerNext()
}

// MessageStore gives controllers access to pending messages.
type MessageStore interface {
	// ProcessMessages visits every message in order.
	ProcessMessages(MessageProcessor)
	// AddMessages appends messages visible to lower priority controllers
	// of the same iteration.
	AddMessages(msgs ...Message)
}

// MessageProcessor visits messages.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext is the state of one visit.
type MessageProcessingContext interface {
	// CurrentMessage is the message being visited.
	CurrentMessage() Message
	// MessageTaken removes the message from the store.
	MessageTaken()
	// StopProcessing skips the remaining messages.
	StopProcessing()
}

// PriorityLevels is the number of controller priority levels.
const PriorityLevels int = 8

// Priority levels, lower runs first.
const (
	PrLvTop int = 0
	// PrLvService drains hardware buffers.
	PrLvService int = 2
	// PrLvApp runs application logic on drained data.
	PrLvApp int = 4
	// PrLvReport publishes results of the iteration.
	PrLvReport int = 6
	PrLvIdle   int = PriorityLevels - 1
)
