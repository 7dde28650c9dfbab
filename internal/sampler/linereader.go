package sampler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
)

// maxLineLength bounds a record. The instrument sends "<time>,<voltage>",
// so anything longer without a newline is noise or a wrong line ending.
const maxLineLength = 256

// errReadTimeout means the port produced no complete line within its read timeout
var errReadTimeout = errors.New("read timeout")

var errLineTooLong = fmt.Errorf("no line terminator within %d bytes", maxLineLength)

// lineReader splits newline terminated records out of a port whose Read
// returns (0, nil) when its read timeout expires. bufio.Reader treats
// repeated empty reads as io.ErrNoProgress, so it is not used here.
type lineReader struct {
	r       io.Reader
	timeout time.Duration
	now     func() time.Time
	chunk   []byte
	pending []byte
}

// newLineReader wraps r. A positive timeout bounds each ReadLine call even
// while bytes keep arriving without a terminator.
func newLineReader(r io.Reader, timeout time.Duration, now func() time.Time) *lineReader {
	if now == nil {
		now = time.Now
	}
	return &lineReader{r: r, timeout: timeout, now: now, chunk: make([]byte, maxLineLength)}
}

// ReadLine returns the next line without its terminator. Bytes of an
// incomplete line are kept for the next call. A line longer than
// maxLineLength is discarded and reported as a *ParseError.
func (lr *lineReader) ReadLine() (string, error) {
	start := lr.now()
	for {
		if i := bytes.IndexByte(lr.pending, '\n'); i >= 0 {
			line := string(lr.pending[:i])
			lr.pending = lr.pending[i+1:]
			if len(line) > maxLineLength {
				return "", &ParseError{Line: line[:maxLineLength], Err: errLineTooLong}
			}
			return line, nil
		}
		if len(lr.pending) > maxLineLength {
			line := string(lr.pending[:maxLineLength])
			lr.pending = nil
			return "", &ParseError{Line: line, Err: errLineTooLong}
		}

		n, err := lr.r.Read(lr.chunk)
		if n > 0 {
			lr.pending = append(lr.pending, lr.chunk[:n]...)
			if lr.timeout > 0 && lr.now().Sub(start) >= lr.timeout && bytes.IndexByte(lr.pending, '\n') < 0 {
				return "", errReadTimeout
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(lr.pending) > 0 {
				line := string(lr.pending)
				lr.pending = nil
				return line, nil
			}
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		return "", errReadTimeout
	}
}
