package framework

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the loop period when Interval is unset.
const DefaultInterval = 200 * time.Millisecond

// Loop is the foreground super-loop. Each iteration runs all controllers in
// priority order; iterations happen every Interval or as soon as
// TriggerNext is called.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels][]Controller
	runners     []Runnable

	lock     sync.Mutex
	posted   []Message
	wakeUpCh chan struct{}

	iterations uint64
}

// LoopAdder adds its parts to a loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopCtxKeyType struct{}

var loopCtxKey loopCtxKeyType

// LoopCtlFrom gets LoopControl from the context passed to runnables.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// NewLoop creates a Loop with the default interval.
func NewLoop() *Loop {
	return &Loop{
		Interval: DefaultInterval,
		wakeUpCh: make(chan struct{}, 1),
	}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at a priority level. Controllers that
// are also Runnable are started with the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds runnables started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runner := NewRunnerWith(context.WithValue(subCtx, loopCtxKey, LoopControl(l)))
	runner.Go(l.runners...)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cancel()
			if err := runner.Wait(); err != nil {
				glog.Errorf("loop runners: %v", err)
			}
			return ctx.Err()
		case <-ticker.C:
			l.RunOnce(ctx)
		case <-l.wakeUpCh:
			l.RunOnce(ctx)
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.posted = append(l.posted, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Iterations returns the number of completed iterations.
func (l *Loop) Iterations() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.iterations
}

// RunOnce runs a single iteration on the calling goroutine.
func (l *Loop) RunOnce(ctx context.Context) {
	l.lock.Lock()
	l.iterations++
	iter := &iteration{
		loop:     l,
		ctx:      ctx,
		time:     time.Now(),
		seq:      l.iterations,
		messages: l.posted,
	}
	l.posted = nil
	l.lock.Unlock()

	for lv := 0; lv < PriorityLevels; lv++ {
		iter.level = lv
		for _, ctl := range l.controllers[lv] {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error at level %d: %v", lv, err)
			}
		}
	}
	if len(iter.messages) > 0 {
		glog.V(4).Infof("iteration %d: %d messages not taken", iter.seq, len(iter.messages))
	}
}

type iteration struct {
	loop     *Loop
	ctx      context.Context
	time     time.Time
	seq      uint64
	level    int
	messages []Message
}

func (t *iteration) Context() context.Context   { return t.ctx }
func (t *iteration) Time() time.Time            { return t.time }
func (t *iteration) Iteration() uint64          { return t.seq }
func (t *iteration) PriorityLevel() int         { return t.level }
func (t *iteration) Messages() MessageStore     { return t }
func (t *iteration) PostMessage(msg Message)    { t.loop.PostMessage(msg) }
func (t *iteration) TriggerNext()               { t.loop.TriggerNext() }
func (t *iteration) AddMessages(msgs ...Message) { t.messages = append(t.messages, msgs...) }

type visit struct {
	msg   Message
	taken bool
	stop  bool
}

func (v *visit) CurrentMessage() Message { return v.msg }
func (v *visit) MessageTaken()           { v.taken = true }
func (v *visit) StopProcessing()         { v.stop = true }

// ProcessMessages implements MessageStore.
func (t *iteration) ProcessMessages(proc MessageProcessor) {
	msgs := t.messages
	t.messages = nil
	remains := make([]Message, 0, len(msgs))
	for n, msg := range msgs {
		v := &visit{msg: msg}
		proc.ProcessMessage(v)
		if !v.taken {
			remains = append(remains, msg)
		}
		if v.stop {
			remains = append(remains, msgs[n+1:]...)
			break
		}
	}
	// messages added while processing go after the remaining ones.
	t.messages = append(remains, t.messages...)
}
