package vt

import (
	"io"
	"sync/atomic"
)

// lineEnding holds the process-wide line-ending literal for file-bound
// output. Initialised to CR-LF; SetLineEnding replaces it. The holder
// is written at most during start-up configuration and read thereafter.
var lineEnding atomic.Value

func init() {
	lineEnding.Store("\r\n")
}

// SetLineEnding configures the literal that file-bound output writes in
// place of CR, LF and CR-LF.
func SetLineEnding(literal string) {
	lineEnding.Store(literal)
}

// LineEnding returns the configured line-ending literal.
func LineEnding() string {
	return lineEnding.Load().(string)
}

// Normalizer rewrites every CR, LF and CR-LF in the stream to a fixed
// terminator literal. A CR at the end of a write is held back until the
// next write so a CR-LF pair is never split into two terminators.
type Normalizer struct {
	w         io.Writer
	ending    []byte
	pendingCR bool
}

// NewNormalizer returns a normalizer writing to w with the given
// terminator literal.
func NewNormalizer(w io.Writer, ending string) *Normalizer {
	return &Normalizer{w: w, ending: []byte(ending)}
}

// Write rewrites line endings in b and forwards the result.
func (n *Normalizer) Write(b []byte) (int, error) {
	written := 0
	flushRun := func(run []byte) error {
		if len(run) == 0 {
			return nil
		}
		_, err := n.w.Write(run)
		return err
	}

	start := 0
	for i := 0; i < len(b); i++ {
		c := b[i]
		if n.pendingCR {
			// The previous write ended in CR; this byte decides whether
			// it was a bare CR or half of a CR-LF.
			n.pendingCR = false
			if _, err := n.w.Write(n.ending); err != nil {
				return written, err
			}
			if c == '\n' {
				start = i + 1
				written++
				continue
			}
		}
		if c != '\r' && c != '\n' {
			continue
		}
		if err := flushRun(b[start:i]); err != nil {
			return written, err
		}
		written = i
		if c == '\r' {
			if i == len(b)-1 {
				n.pendingCR = true
				start = len(b)
				break
			}
			if b[i+1] == '\n' {
				i++
			}
		}
		if _, err := n.w.Write(n.ending); err != nil {
			return written, err
		}
		start = i + 1
		written = start
	}
	if err := flushRun(b[start:]); err != nil {
		return written, err
	}
	return len(b), nil
}

// Flush resolves a held CR as a bare terminator. Call at end of stream.
func (n *Normalizer) Flush() error {
	if !n.pendingCR {
		return nil
	}
	n.pendingCR = false
	_, err := n.w.Write(n.ending)
	return err
}
