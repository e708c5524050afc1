// Package linereader implements the byte-oriented line reader shared by
// the utilities: it pulls chunks from a file or pipe, finds record
// terminators in single-byte or UTF-16 streams, converts lines to host
// text, and supports cancellation, soft deadlines and a bounded cache
// of reusable reader states.
package linereader

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/mtrellis/conkit/internal/textbuf"
	"github.com/mtrellis/conkit/internal/textenc"
)

// defaultBufSize is the scratch buffer the reader starts with. A line
// longer than the scratch fails with ErrLineTooLong.
const defaultBufSize = 256 * 1024

// Refill wait tuning: the sleep starts at initialDelay and doubles to
// maxDelay; the cumulative sleep is charged against the caller's
// deadline.
const (
	initialDelay = time.Millisecond
	maxDelay     = 500 * time.Millisecond
)

var (
	// ErrLineTooLong is returned when the scratch buffer fills without a
	// terminator. The stream is marked terminated.
	ErrLineTooLong = errors.New("linereader: line exceeds buffer capacity")

	// ErrTimedOut is returned when the caller's deadline elapses before
	// data arrives. The stream is not terminated; a later read may
	// succeed.
	ErrTimedOut = errors.New("linereader: read timed out")

	// ErrCancelled is returned when the context is cancelled during a
	// wait. The stream is marked terminated.
	ErrCancelled = errors.New("linereader: operation cancelled")
)

// Ending identifies the terminator that ended a line.
type Ending int

const (
	// EndingNone marks a final partial line with no terminator.
	EndingNone Ending = iota

	// EndingCR is a bare carriage return.
	EndingCR

	// EndingLF is a CR-less line feed.
	EndingLF

	// EndingCRLF is the carriage return, line feed pair.
	EndingCRLF
)

// String names the ending for diagnostics.
func (e Ending) String() string {
	switch e {
	case EndingCR:
		return "CR"
	case EndingLF:
		return "LF"
	case EndingCRLF:
		return "CRLF"
	default:
		return "none"
	}
}

// Options modify one ReadLine call.
type Options struct {
	// Timeout bounds the cumulative wait for data. Zero means wait
	// without bound. The bound is soft: the coarsest sleep step is
	// 500ms.
	Timeout time.Duration

	// ReturnFinalPartial returns the residue before end of stream as a
	// final line with EndingNone instead of discarding it.
	ReturnFinalPartial bool
}

// Reader is the per-stream line reader state. It is owned by a single
// caller; only the cache it may be returned to is shared.
type Reader struct {
	src   Source
	codec *textenc.Codec

	buf        []byte
	scratch    textbuf.Buffer // decode staging, reused per line
	start      int            // offset of the first unconsumed byte
	end        int            // one past the last valid byte
	linesRead  int
	wide       bool
	sawEOF     bool
	terminated bool
}

// New returns a Reader over src, recycling a cached state when one is
// available. codec nil selects the active process codec; the codec's
// width controls terminator scanning granularity.
func New(src Source, codec *textenc.Codec) *Reader {
	if codec == nil {
		codec = textenc.Active()
	}
	r := takeCached()
	if r == nil {
		r = &Reader{buf: make([]byte, defaultBufSize)}
	}
	r.src = src
	r.codec = codec
	r.wide = codec.Wide()
	return r
}

// ReadLine returns the next line converted to host text, along with the
// terminator that ended it. End of stream is io.EOF. Once the reader is
// terminated every subsequent call returns io.EOF without touching the
// source.
func (r *Reader) ReadLine(ctx context.Context, opts Options) (string, Ending, error) {
	if r.terminated {
		return "", EndingNone, io.EOF
	}

	for {
		if line, ending, ok := r.scan(); ok {
			return r.emit(line, ending)
		}

		if r.sawEOF {
			return r.finalPartial(opts)
		}

		// Compact unprocessed bytes to the front to make room.
		if r.start > 0 {
			copy(r.buf, r.buf[r.start:r.end])
			r.end -= r.start
			r.start = 0
		}
		if r.end == len(r.buf) {
			r.terminated = true
			return "", EndingNone, ErrLineTooLong
		}

		if err := r.fill(ctx, opts); err != nil {
			if errors.Is(err, io.EOF) {
				r.sawEOF = true
				continue
			}
			return "", EndingNone, err
		}
	}
}

// unit returns the scanning step: 2 bytes for UTF-16 streams, else 1.
func (r *Reader) unit() int {
	if r.wide {
		return 2
	}
	return 1
}

// at reports whether the unit at offset i equals the ASCII byte c.
func (r *Reader) at(i int, c byte) bool {
	if r.wide {
		return r.buf[i] == c && r.buf[i+1] == 0
	}
	return r.buf[i] == c
}

// scan searches the window for a terminator. It returns the line bytes
// (terminator excluded) and advances past the terminator on success.
func (r *Reader) scan() ([]byte, Ending, bool) {
	u := r.unit()
	for i := r.start; i+u <= r.end; i += u {
		if r.at(i, '\n') {
			line := r.buf[r.start:i]
			r.start = i + u
			return line, EndingLF, true
		}
		if !r.at(i, '\r') {
			continue
		}
		if i+2*u <= r.end {
			line := r.buf[r.start:i]
			if r.at(i+u, '\n') {
				r.start = i + 2*u
				return line, EndingCRLF, true
			}
			r.start = i + u
			return line, EndingCR, true
		}
		// The CR is the last unit in the window. If more input may
		// arrive, leave it in place: the next unit could be the LF of a
		// CR-LF pair. Consume it only when no more input can come or
		// the window occupies the whole buffer with nothing to compact.
		if r.sawEOF || (r.start == 0 && r.end == len(r.buf)) {
			line := r.buf[r.start:i]
			r.start = i + u
			return line, EndingCR, true
		}
		return nil, EndingNone, false
	}
	return nil, EndingNone, false
}

// emit converts a scanned line to host text, skipping a byte-order mark
// on the very first line.
func (r *Reader) emit(line []byte, ending Ending) (string, Ending, error) {
	if r.linesRead == 0 {
		// Only a mark announcing the stream's own encoding is a BOM; an
		// accidental prefix under another codec is data.
		if kind, n := textenc.DetectBOM(line); n > 0 && kind == r.codec.Kind() {
			line = line[n:]
		}
	}
	r.linesRead++
	r.scratch.Reset()
	if err := r.codec.AppendDecoded(&r.scratch, line); err != nil {
		r.terminated = true
		return "", EndingNone, err
	}
	return r.scratch.String(), ending, nil
}

// finalPartial handles end of stream: residue becomes a last line when
// requested, otherwise the stream just ends. Either way the reader is
// terminated.
func (r *Reader) finalPartial(opts Options) (string, Ending, error) {
	r.terminated = true
	if opts.ReturnFinalPartial && r.end > r.start {
		line := r.buf[r.start:r.end]
		r.start = r.end
		return r.emit(line, EndingNone)
	}
	return "", EndingNone, io.EOF
}

// fill waits for data with a bounded, exponentially backed-off sleep,
// then reads one chunk into the buffer tail. Cancellation wins over
// data; the deadline is cumulative wall clock inside this call.
func (r *Reader) fill(ctx context.Context, opts Options) error {
	delay := initialDelay
	var slept time.Duration

	for r.src.IsPipe() {
		if err := ctx.Err(); err != nil {
			r.terminated = true
			return ErrCancelled
		}
		n, err := r.src.Peek()
		if err != nil {
			r.terminated = true
			return err
		}
		if n > 0 {
			break
		}
		if opts.Timeout > 0 && slept >= opts.Timeout {
			return ErrTimedOut
		}
		if err := sleepCtx(ctx, delay); err != nil {
			r.terminated = true
			return ErrCancelled
		}
		slept += delay
		if delay *= 2; delay > maxDelay {
			delay = maxDelay
		}
	}

	if err := ctx.Err(); err != nil {
		r.terminated = true
		return ErrCancelled
	}

	n, err := r.src.Read(r.buf[r.end:])
	if n > 0 {
		r.end += n
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return io.EOF
	}
	r.terminated = true
	return err
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
