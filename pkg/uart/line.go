package uart

// MaxLineLength caps the number of bytes in one line record.
const MaxLineLength = 64

// Source is the consumer side of a receive buffer.
type Source interface {
	Available() (int, error)
	Consume() (byte, error)
}

// IsDelimiter reports whether b ends a line record.
func IsDelimiter(b byte) bool {
	return b == '\n' || b == '\r' || b == 0
}

// ReadLine drains src into dst until a delimiter is consumed, the record
// holds min(len(dst), MaxLineLength) bytes, or nothing more is available.
// The delimiter is consumed but not stored. When the record is full the next
// byte stays in src. If src reports data loss, the bytes assembled so far are
// returned with the error.
func ReadLine(src Source, dst []byte) (int, error) {
	limit := len(dst)
	if limit > MaxLineLength {
		limit = MaxLineLength
	}
	n := 0
	for n < limit {
		avail, err := src.Available()
		if err != nil {
			return n, err
		}
		if avail <= 0 {
			break
		}
		b, err := src.Consume()
		if err != nil {
			return n, err
		}
		if IsDelimiter(b) {
			break
		}
		dst[n] = b
		n++
	}
	return n, nil
}

// LineReader assembles owned line records from a Source.
type LineReader struct {
	Source Source
}

// NewLineReader creates a LineReader.
func NewLineReader(src Source) *LineReader {
	return &LineReader{Source: src}
}

// Next returns a freshly allocated record. Callers own the result.
func (r *LineReader) Next() ([]byte, error) {
	var buf [MaxLineLength]byte
	n, err := ReadLine(r.Source, buf[:])
	line := make([]byte, n)
	copy(line, buf[:n])
	return line, err
}
