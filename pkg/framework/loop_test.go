package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMsg struct{ val int }

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func TestLoopMessageFlow(t *testing.T) {
	loop := NewLoop()
	var order []string
	var seen []int

	loop.AddController(PrLvReport, ControlFunc(func(cc ControlContext) error {
		order = append(order, "report")
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			if m, ok := mc.CurrentMessage().(*testMsg); ok {
				mc.MessageTaken()
				seen = append(seen, m.val)
			}
		}))
		return nil
	}))
	loop.AddController(PrLvService, ControlFunc(func(cc ControlContext) error {
		order = append(order, "service")
		cc.Messages().AddMessages(&testMsg{val: int(cc.Iteration())})
		return errors.New("logged, not fatal")
	}))

	loop.PostMessage(&testMsg{val: 100})
	loop.RunOnce(context.Background())
	loop.RunOnce(context.Background())

	require.Equal(t, []string{"service", "report", "service", "report"}, order)
	require.Equal(t, []int{100, 1, 2}, seen)
	require.EqualValues(t, 2, loop.Iterations())
}

func TestProcessMessagesStop(t *testing.T) {
	iter := &iteration{messages: []Message{&testMsg{1}, &testMsg{2}, &testMsg{3}}}
	iter.ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
		mc.MessageTaken()
		if mc.CurrentMessage().(*testMsg).val == 2 {
			mc.StopProcessing()
		}
	}))
	require.Len(t, iter.messages, 1)
	require.Equal(t, 3, iter.messages[0].(*testMsg).val)
}

func TestLoopTriggerNext(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour
	ran := make(chan uint64, 4)
	loop.AddController(PrLvApp, ControlFunc(func(cc ControlContext) error {
		ran <- cc.Iteration()
		return nil
	}))
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		LoopCtlFrom(ctx).TriggerNext()
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	select {
	case seq := <-ran:
		require.EqualValues(t, 1, seq)
	case <-time.After(time.Second):
		t.Fatal("TriggerNext did not run an iteration")
	}
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestRunnerAggregatesErrors(t *testing.T) {
	boom := errors.New("boom")
	r := NewRunner().Go(
		RunFunc(func(context.Context) error { return boom }),
		NamedRun("canceled", RunFunc(func(context.Context) error { return context.Canceled })),
		RunFunc(func(context.Context) error { return nil }),
	)
	err := r.Wait()
	require.ErrorIs(t, err, boom)
	require.Equal(t, "boom", err.Error())
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunWithContextCloser(t *testing.T) {
	release := make(chan struct{})
	closed := 0
	closer := closerFunc(func() error {
		closed++
		close(release)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-release
		return errors.New("closed")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, closed)
}
