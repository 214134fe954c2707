package uart

import (
	"errors"
	"fmt"
)

var (
	// ErrDataLoss indicates the producer had to drop bytes because the
	// receive buffer was full. It is reported until Reset is called.
	ErrDataLoss = errors.New("receive buffer overflow, data lost")
	// ErrEmptyBuffer indicates Consume was called with nothing pending.
	ErrEmptyBuffer = errors.New("receive buffer empty")
	// ErrTxTimeout indicates the transmitter did not become ready in time.
	ErrTxTimeout = errors.New("transmit timeout")
	// ErrBaudRate indicates an unsupported baud rate.
	ErrBaudRate = errors.New("unsupported baud rate")
)

// BaudRateError reports the rejected baud rate.
type BaudRateError struct {
	BaudRate int
}

// Error implements error.
func (e *BaudRateError) Error() string {
	return fmt.Sprintf("unsupported baud rate %d (want one of %v)", e.BaudRate, BaudRates)
}

// Is matches ErrBaudRate.
func (e *BaudRateError) Is(target error) bool {
	return target == ErrBaudRate
}
