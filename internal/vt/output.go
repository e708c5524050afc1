package vt

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mtrellis/conkit/internal/console"
)

// Flags steer Output: destination selection plus escape handling
// overrides.
type Flags int

const (
	// FlagStdout directs output to standard output. This is the default
	// when no destination flag is set.
	FlagStdout Flags = 1 << iota

	// FlagStderr directs output to standard error.
	FlagStderr

	// FlagStripVT removes escape sequences regardless of destination.
	FlagStripVT

	// FlagPassthroughVT forwards escape sequences untouched regardless
	// of destination.
	FlagPassthroughVT
)

// Output renders format with args and runs the result through the
// escape pipeline to the destination selected by flags. This is the
// sanctioned write path for all utilities.
func Output(flags Flags, format string, args ...any) error {
	f := os.Stdout
	if flags&FlagStderr != 0 {
		f = os.Stderr
	}
	return OutputToDevice(f, flags, format, args...)
}

// OutputToDevice is Output with an explicit destination device.
func OutputToDevice(f *os.File, flags Flags, format string, args ...any) error {
	return OutputString(f, flags, fmt.Sprintf(format, args...))
}

// OutputString runs an already-rendered string through the escape
// pipeline to f.
func OutputString(f *os.File, flags Flags, s string) error {
	mode := SelectMode(f, flags)
	sink := NewSink(f, mode, console.Detect(), nil)
	p := NewPipeline(sink)
	if err := p.Write([]byte(s)); err != nil {
		return err
	}
	return p.Close()
}

// Strip removes every escape sequence from b and returns the remaining
// text. Truncated trailing sequences are removed as well.
func Strip(b []byte) []byte {
	var out bytes.Buffer
	sink := &stripSink{w: &out}
	p := NewPipeline(sink)
	// Write cannot fail against a memory sink and Close only reports a
	// trailing truncated escape, which Strip is defined to drop.
	_ = p.Write(b)
	_ = p.Close()
	return out.Bytes()
}
