package uart

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func produceAll(rb *RingBuffer, p []byte) {
	for _, b := range p {
		rb.Produce(b)
	}
}

func consumeN(t *testing.T, rb *RingBuffer, n int) []byte {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		b, err := rb.Consume()
		require.NoErrorf(t, err, "consume[%d]", i)
		out = append(out, b)
	}
	return out
}

func seqBytes(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i + 1)
	}
	return p
}

func TestRingFIFO(t *testing.T) {
	for _, n := range []int{0, 1, 2, 31, 63, 64} {
		var rb RingBuffer
		data := seqBytes(n)
		produceAll(&rb, data)

		avail, err := rb.Available()
		require.NoError(t, err)
		require.Equal(t, n, avail)
		require.Equal(t, data, consumeN(t, &rb, n))

		avail, err = rb.Available()
		require.NoError(t, err)
		require.Zero(t, avail)
	}
}

func TestRingOverflow(t *testing.T) {
	testCases := []struct {
		name     string
		produced int
	}{
		{"one over", BufferSize + 1},
		{"seventy", 70},
		{"many wraps", 5 * BufferSize},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var rb RingBuffer
			produceAll(&rb, seqBytes(tc.produced))

			_, err := rb.Available()
			require.ErrorIs(t, err, ErrDataLoss)

			stats := rb.Stats()
			require.True(t, stats.Overflow)
			require.Equal(t, BufferSize, stats.Pending)
			require.EqualValues(t, tc.produced-BufferSize, stats.Dropped)

			// bytes accepted before the overflow are intact.
			require.Equal(t, seqBytes(BufferSize), consumeN(t, &rb, BufferSize))
			_, err = rb.Available()
			require.ErrorIs(t, err, ErrDataLoss, "loss stays reported until reset")

			rb.Reset()
			avail, err := rb.Available()
			require.NoError(t, err)
			require.Zero(t, avail)
		})
	}
}

func TestRingConsumeEmpty(t *testing.T) {
	var rb RingBuffer
	_, err := rb.Consume()
	require.ErrorIs(t, err, ErrEmptyBuffer)

	rb.Produce('x')
	b, err := rb.Consume()
	require.NoError(t, err)
	require.Equal(t, byte('x'), b)
	_, err = rb.Consume()
	require.ErrorIs(t, err, ErrEmptyBuffer)
}

func TestRingResetAlwaysEmpty(t *testing.T) {
	states := []func(*RingBuffer){
		func(*RingBuffer) {},
		func(rb *RingBuffer) { produceAll(rb, seqBytes(10)) },
		func(rb *RingBuffer) { produceAll(rb, seqBytes(100)) },
		func(rb *RingBuffer) {
			produceAll(rb, seqBytes(50))
			rb.Consume()
			produceAll(rb, seqBytes(30))
		},
	}
	for n, setup := range states {
		var rb RingBuffer
		setup(&rb)
		rb.Reset()
		avail, err := rb.Available()
		require.NoErrorf(t, err, "state[%d]", n)
		require.Zerof(t, avail, "state[%d]", n)
		_, err = rb.Consume()
		require.ErrorIsf(t, err, ErrEmptyBuffer, "state[%d]", n)
	}
}

func TestRingAvailableIdempotent(t *testing.T) {
	var rb RingBuffer
	produceAll(&rb, seqBytes(17))
	for i := 0; i < 5; i++ {
		avail, err := rb.Available()
		require.NoError(t, err)
		require.Equal(t, 17, avail)
	}
	produceAll(&rb, seqBytes(60))
	for i := 0; i < 5; i++ {
		_, err := rb.Available()
		require.ErrorIs(t, err, ErrDataLoss)
	}
}

func TestRingInterleaving(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		var rb RingBuffer
		var next, expect byte
		outstanding := 0
		for step := 0; step < 1000; step++ {
			if outstanding < BufferSize && (outstanding == 0 || rnd.Intn(2) == 0) {
				rb.Produce(next)
				next++
				outstanding++
				continue
			}
			b, err := rb.Consume()
			require.NoError(t, err)
			require.Equalf(t, expect, b, "round %d step %d", round, step)
			expect++
			outstanding--
		}
		avail, err := rb.Available()
		require.NoError(t, err)
		require.Equal(t, outstanding, avail)
	}
}

// A producer goroutine and the consumer run concurrently; the producer
// never gets more than BufferSize ahead, so nothing may be lost.
func TestRingConcurrentProducer(t *testing.T) {
	const total = 20000
	var rb RingBuffer
	var wg sync.WaitGroup
	credits := make(chan struct{}, BufferSize)
	for i := 0; i < BufferSize; i++ {
		credits <- struct{}{}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			<-credits
			rb.Produce(byte(i))
		}
	}()

	deadline := time.After(10 * time.Second)
	for i := 0; i < total; {
		avail, err := rb.Available()
		require.NoError(t, err)
		for ; avail > 0; avail-- {
			b, err := rb.Consume()
			require.NoError(t, err)
			require.Equalf(t, byte(i), b, "byte %d", i)
			i++
			credits <- struct{}{}
		}
		select {
		case <-deadline:
			t.Fatalf("timeout at byte %d", i)
		default:
		}
	}
	wg.Wait()
	require.Equal(t, RingStats{Produced: total, Consumed: total}, rb.Stats())
}
