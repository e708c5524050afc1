// Package vt implements the escape-processing output pipeline: it scans
// text for CSI escape sequences, splits the stream into text runs and
// escape runs, and dispatches both through a Sink. Sink variants
// translate SGR colour sequences to native console attributes, strip
// them, or pass them through, and file-bound variants also normalise
// line endings.
package vt

import (
	"bytes"
	"errors"
)

// Escape introducer bytes.
const (
	esc = 0x1b
	csi = '['
)

// maxEscape bounds how many bytes of an unterminated escape sequence
// the pipeline will buffer before giving up. A real CSI sequence is far
// shorter; hitting the bound means the input is not going to complete.
const maxEscape = 128

// ErrTruncatedEscape is reported when input ends inside an escape
// sequence with no further data outstanding, or when a sequence exceeds
// the buffering bound.
var ErrTruncatedEscape = errors.New("vt: truncated escape sequence")

// Sink receives the split output of a pipeline: runs of plain text and
// complete escape sequences, in source order.
type Sink interface {
	// Begin is called once before the first run.
	Begin() error

	// Text receives a run of plain text containing no escape introducer.
	Text(b []byte) error

	// Escape receives one complete escape sequence, introducer included.
	Escape(b []byte) error

	// End is called once after the last run.
	End() error
}

// Pipeline is a stateful transducer from raw bytes to sink callbacks.
// Input may arrive in arbitrary chunks; a sequence split across chunks
// is carried over to the next write.
type Pipeline struct {
	sink    Sink
	pending []byte
	began   bool
}

// NewPipeline returns a pipeline dispatching into sink.
func NewPipeline(sink Sink) *Pipeline {
	return &Pipeline{sink: sink}
}

// Write scans b, handing text and complete escape sequences to the
// sink. A trailing incomplete sequence is buffered for the next Write.
func (p *Pipeline) Write(b []byte) error {
	if !p.began {
		if err := p.sink.Begin(); err != nil {
			return err
		}
		p.began = true
	}

	if len(p.pending) > 0 {
		// Continue the carried-over sequence. Append input until the
		// sequence completes or the bound is hit.
		p.pending = append(p.pending, b...)
		n, complete := escapeLen(p.pending)
		if !complete {
			if len(p.pending) >= maxEscape {
				return ErrTruncatedEscape
			}
			return nil
		}
		if err := p.sink.Escape(p.pending[:n]); err != nil {
			return err
		}
		b = p.pending[n:]
		p.pending = nil
	}

	for len(b) > 0 {
		i := bytes.IndexByte(b, esc)
		if i < 0 {
			return p.sink.Text(b)
		}
		if i > 0 {
			if err := p.sink.Text(b[:i]); err != nil {
				return err
			}
			b = b[i:]
		}
		n, complete := escapeLen(b)
		if !complete {
			if len(b) >= maxEscape {
				return ErrTruncatedEscape
			}
			p.pending = append(p.pending[:0], b...)
			return nil
		}
		if err := p.sink.Escape(b[:n]); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// Close flushes the pipeline. An escape sequence still incomplete at
// close fails with ErrTruncatedEscape; the sink's End still runs so
// devices are restored.
func (p *Pipeline) Close() error {
	var truncated error
	if len(p.pending) > 0 {
		truncated = ErrTruncatedEscape
		p.pending = nil
	}
	if !p.began {
		if err := p.sink.Begin(); err != nil {
			return err
		}
		p.began = true
	}
	if err := p.sink.End(); err != nil {
		return err
	}
	return truncated
}

// escapeLen examines b, which must start with ESC, and reports the
// length of the escape sequence at its head and whether the sequence is
// complete within b.
//
// The grammar recognised is ESC '[' parameter-bytes final-byte, with
// parameter bytes in 0x30-0x3f, intermediate bytes in 0x20-0x2f and a
// final byte in 0x40-0x7e. A bare ESC not followed by '[' is treated as
// a two-byte sequence so unknown escapes still pass through whole.
func escapeLen(b []byte) (int, bool) {
	if len(b) < 2 {
		return 0, false
	}
	if b[1] != csi {
		return 2, true
	}
	for i := 2; i < len(b); i++ {
		c := b[i]
		switch {
		case c >= 0x30 && c <= 0x3f:
			// Parameter byte.
		case c >= 0x20 && c <= 0x2f:
			// Intermediate byte.
		case c >= 0x40 && c <= 0x7e:
			return i + 1, true
		default:
			// Malformed; surrender the sequence up to and including the
			// offending byte so the stream keeps moving.
			return i + 1, true
		}
	}
	return 0, false
}
