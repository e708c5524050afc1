package vt

import (
	"fmt"
	"io"
	"os"

	"github.com/mtrellis/conkit/internal/console"
	"github.com/mtrellis/conkit/internal/textbuf"
	"github.com/mtrellis/conkit/internal/textenc"
)

// Mode selects a sink variant.
type Mode int

const (
	// ConsoleTranslate parses SGR sequences and applies them as native
	// attribute calls; text passes through.
	ConsoleTranslate Mode = iota

	// ConsoleStrip discards escape sequences; text passes through.
	ConsoleStrip

	// ConsolePassthrough writes text and escapes unchanged.
	ConsolePassthrough

	// FileStrip discards escapes and writes text through multibyte
	// conversion and line-ending normalisation.
	FileStrip

	// FilePassthrough writes escapes too, with the same text handling
	// as FileStrip.
	FilePassthrough
)

// String names the mode for diagnostics.
func (m Mode) String() string {
	switch m {
	case ConsoleTranslate:
		return "console-translate"
	case ConsoleStrip:
		return "console-strip"
	case ConsolePassthrough:
		return "console-passthrough"
	case FileStrip:
		return "file-strip"
	default:
		return "file-passthrough"
	}
}

// NewSink builds the sink variant for mode writing to f. capability may
// be nil for file modes. codec applies to file modes only; nil selects
// the active process codec.
func NewSink(f *os.File, mode Mode, capability *console.Capability, codec *textenc.Codec) Sink {
	switch mode {
	case ConsoleTranslate:
		// Without an attribute API the terminal interprets VT natively,
		// so translation degrades to passthrough.
		if capability == nil || capability.SetTextAttribute == nil {
			return &passSink{w: f}
		}
		return &translateSink{f: f, capability: capability}
	case ConsoleStrip:
		return &stripSink{w: f}
	case ConsolePassthrough:
		return &passSink{w: f}
	default:
		if codec == nil {
			codec = textenc.Active()
		}
		enc := &encodeWriter{codec: codec, w: f}
		return &fileSink{
			norm:  NewNormalizer(enc, LineEnding()),
			enc:   enc,
			strip: mode == FileStrip,
		}
	}
}

// SelectMode picks the sink variant for a destination given the output
// flags: consoles translate unless a flag overrides, byte devices strip
// unless passthrough is requested.
func SelectMode(f *os.File, flags Flags) Mode {
	if console.IsConsole(f) {
		switch {
		case flags&FlagStripVT != 0:
			return ConsoleStrip
		case flags&FlagPassthroughVT != 0:
			return ConsolePassthrough
		default:
			return ConsoleTranslate
		}
	}
	if flags&FlagPassthroughVT != 0 {
		return FilePassthrough
	}
	return FileStrip
}

// translateSink applies SGR sequences as attribute calls.
type translateSink struct {
	f          *os.File
	capability *console.Capability
	current    console.Attr
}

func (s *translateSink) Begin() error {
	s.current = console.DefaultColor()
	return nil
}

func (s *translateSink) Text(b []byte) error {
	_, err := s.f.Write(b)
	return err
}

func (s *translateSink) Escape(b []byte) error {
	if !IsSGR(b) {
		// Non-SGR sequences carry no attribute meaning; hand them to
		// the device untouched.
		_, err := s.f.Write(b)
		return err
	}
	next := ApplySGR(b, s.current, console.DefaultColor())
	if next == s.current {
		return nil
	}
	if err := s.capability.Set(s.f, next); err != nil {
		return fmt.Errorf("vt: set attribute: %w", err)
	}
	s.current = next
	return nil
}

func (s *translateSink) End() error { return nil }

// stripSink forwards text and swallows escapes.
type stripSink struct {
	w io.Writer
}

func (s *stripSink) Begin() error { return nil }

func (s *stripSink) Text(b []byte) error {
	_, err := s.w.Write(b)
	return err
}

func (s *stripSink) Escape([]byte) error { return nil }

func (s *stripSink) End() error { return nil }

// passSink forwards everything.
type passSink struct {
	w io.Writer
}

func (s *passSink) Begin() error { return nil }

func (s *passSink) Text(b []byte) error {
	_, err := s.w.Write(b)
	return err
}

func (s *passSink) Escape(b []byte) error {
	_, err := s.w.Write(b)
	return err
}

func (s *passSink) End() error { return nil }

// encodeWriter converts host text chunks to the external encoding as
// they pass through. The staging buffer is reused across writes.
type encodeWriter struct {
	codec *textenc.Codec
	w     io.Writer
	buf   textbuf.Buffer
}

func (e *encodeWriter) Write(b []byte) (int, error) {
	e.buf.Reset()
	if err := e.codec.AppendEncoded(&e.buf, string(b)); err != nil {
		return 0, err
	}
	if _, err := e.w.Write(e.buf.Bytes()); err != nil {
		return 0, err
	}
	return len(b), nil
}

// fileSink normalises line endings in host text, then converts the
// result to the external encoding. Escapes are dropped or forwarded
// depending on strip.
type fileSink struct {
	norm  *Normalizer
	enc   *encodeWriter
	strip bool
}

func (s *fileSink) Begin() error { return nil }

func (s *fileSink) Text(b []byte) error {
	_, err := s.norm.Write(b)
	return err
}

func (s *fileSink) Escape(b []byte) error {
	if s.strip {
		return nil
	}
	_, err := s.enc.Write(b)
	return err
}

func (s *fileSink) End() error {
	return s.norm.Flush()
}
