package uart

import (
	"runtime"
	"strconv"
	"time"
)

// TxRegister is the transmit side of the serial hardware.
type TxRegister interface {
	// TxReady reports whether the transmit register can take a byte (TXIF).
	TxReady() bool
	// WriteTx loads a byte into the transmit register (TXREG).
	WriteTx(byte)
}

// maxNumberDigits matches the widest number the firmware prints.
const maxNumberDigits = 10

// Transmitter writes bytes one at a time, busy-waiting for the hardware.
// It must only be used from foreground code.
type Transmitter struct {
	Reg TxRegister
	// Timeout bounds the wait for one byte. Zero waits forever.
	Timeout time.Duration
	// PollInterval is the sleep between readiness checks. Zero yields instead.
	PollInterval time.Duration
}

// WriteByte waits until the hardware is ready and writes b.
func (t *Transmitter) WriteByte(b byte) error {
	var deadline time.Time
	if t.Timeout > 0 {
		deadline = time.Now().Add(t.Timeout)
	}
	for !t.Reg.TxReady() {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrTxTimeout
		}
		if t.PollInterval > 0 {
			time.Sleep(t.PollInterval)
		} else {
			runtime.Gosched()
		}
	}
	t.Reg.WriteTx(b)
	return nil
}

// Write implements io.Writer.
func (t *Transmitter) Write(p []byte) (int, error) {
	for n, b := range p {
		if err := t.WriteByte(b); err != nil {
			return n, err
		}
	}
	return len(p), nil
}

// WriteString writes s byte by byte.
func (t *Transmitter) WriteString(s string) (int, error) {
	for n := 0; n < len(s); n++ {
		if err := t.WriteByte(s[n]); err != nil {
			return n, err
		}
	}
	return len(s), nil
}

// WriteLine writes p followed by a line feed.
func (t *Transmitter) WriteLine(p []byte) error {
	if _, err := t.Write(p); err != nil {
		return err
	}
	return t.WriteByte('\n')
}

// WriteNumber writes n in decimal with a leading '-' when negative. Only the
// 10 least significant digits are printed.
func (t *Transmitter) WriteNumber(n int64) error {
	var buf [24]byte
	var u uint64
	if n < 0 {
		if err := t.WriteByte('-'); err != nil {
			return err
		}
		u = uint64(-(n + 1)) + 1
	} else {
		u = uint64(n)
	}
	digits := strconv.AppendUint(buf[:0], u, 10)
	if len(digits) > maxNumberDigits {
		digits = digits[len(digits)-maxNumberDigits:]
	}
	_, err := t.Write(digits)
	return err
}

// WriteBitPattern writes the bits of b, most significant first, as '0'/'1'.
func (t *Transmitter) WriteBitPattern(b byte) error {
	for i := 7; i >= 0; i-- {
		c := byte('0')
		if (b>>uint(i))&1 != 0 {
			c = '1'
		}
		if err := t.WriteByte(c); err != nil {
			return err
		}
	}
	return nil
}
