// Package textenc converts between host text (Go strings, UTF-8) and
// the active external encoding of the streams the utilities read and
// write: a single-byte code page, UTF-8, or UTF-16LE.
//
// The active encoding is resolved once per process, from the
// CONKIT_ENCODING environment variable ("utf8", "utf16", or a numeric
// code page). Conversions either write completely or fail without
// partial output.
package textenc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/mtrellis/conkit/internal/textbuf"
)

// Kind identifies the family of the active encoding.
type Kind int

const (
	// CodePage is a single-byte OEM or ANSI code page.
	CodePage Kind = iota

	// UTF8 is the UTF-8 multibyte encoding.
	UTF8

	// UTF16LE is little-endian UTF-16.
	UTF16LE
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case UTF8:
		return "utf8"
	case UTF16LE:
		return "utf16"
	default:
		return "codepage"
	}
}

// DefaultCodePage is used when a code-page encoding is requested without
// an explicit page number.
const DefaultCodePage = 1252

// Codec converts between host strings and one external encoding.
type Codec struct {
	kind Kind
	page int
	enc  encoding.Encoding
}

// New returns a Codec for the given kind. page is consulted only when
// kind is CodePage; unknown pages fall back to Windows-1252.
func New(kind Kind, page int) *Codec {
	c := &Codec{kind: kind, page: page}
	switch kind {
	case CodePage:
		c.enc = codePageEncoding(page)
	case UTF16LE:
		c.enc = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	}
	return c
}

func codePageEncoding(page int) encoding.Encoding {
	switch page {
	case 437:
		return charmap.CodePage437
	case 850:
		return charmap.CodePage850
	case 852:
		return charmap.CodePage852
	case 866:
		return charmap.CodePage866
	case 1250:
		return charmap.Windows1250
	case 1251:
		return charmap.Windows1251
	case 1252:
		return charmap.Windows1252
	case 1253:
		return charmap.Windows1253
	case 1254:
		return charmap.Windows1254
	case 28591:
		return charmap.ISO8859_1
	default:
		return charmap.Windows1252
	}
}

var (
	activeOnce sync.Once
	active     *Codec
)

// Active returns the process-wide codec, resolved once from
// CONKIT_ENCODING. An unset or unrecognised value selects UTF-8.
func Active() *Codec {
	activeOnce.Do(func() {
		active = fromSpec(os.Getenv("CONKIT_ENCODING"))
	})
	return active
}

func fromSpec(spec string) *Codec {
	switch strings.ToLower(strings.TrimSpace(spec)) {
	case "", "utf8", "utf-8":
		return New(UTF8, 0)
	case "utf16", "utf-16", "utf16le", "utf-16le":
		return New(UTF16LE, 0)
	default:
		if page, err := strconv.Atoi(strings.TrimSpace(spec)); err == nil && page > 0 {
			return New(CodePage, page)
		}
		return New(UTF8, 0)
	}
}

// Kind returns the codec's encoding family.
func (c *Codec) Kind() Kind { return c.kind }

// Wide reports whether the external encoding uses 16-bit code units, in
// which case byte streams must be scanned in 2-byte steps.
func (c *Codec) Wide() bool { return c.kind == UTF16LE }

// BOM returns the byte-order mark this codec's streams may start with.
func (c *Codec) BOM() []byte {
	switch c.kind {
	case UTF8:
		return []byte{0xef, 0xbb, 0xbf}
	case UTF16LE:
		return []byte{0xff, 0xfe}
	default:
		return nil
	}
}

// DetectBOM inspects the start of b for a known byte-order mark and
// returns the encoding it announces plus the mark's length. With no
// mark present it returns (UTF8, 0).
func DetectBOM(b []byte) (Kind, int) {
	if len(b) >= 3 && b[0] == 0xef && b[1] == 0xbb && b[2] == 0xbf {
		return UTF8, 3
	}
	if len(b) >= 2 && b[0] == 0xff && b[1] == 0xfe {
		return UTF16LE, 2
	}
	return UTF8, 0
}

// Decode converts external bytes to a host string. The conversion never
// partially writes: on failure the returned string is empty.
func (c *Codec) Decode(b []byte) (string, error) {
	switch c.kind {
	case UTF8:
		return string(b), nil
	case UTF16LE:
		if len(b)%2 != 0 {
			return "", fmt.Errorf("textenc: UTF-16 input has odd length %d", len(b))
		}
		out, err := c.enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", fmt.Errorf("textenc: UTF-16 decode: %w", err)
		}
		return string(out), nil
	default:
		out, err := c.enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", fmt.Errorf("textenc: code page %d decode: %w", c.page, err)
		}
		return string(out), nil
	}
}

// Encode converts a host string to external bytes. The conversion never
// partially writes: on failure the returned slice is nil.
func (c *Codec) Encode(s string) ([]byte, error) {
	switch c.kind {
	case UTF8:
		return []byte(s), nil
	case UTF16LE:
		out, err := c.enc.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("textenc: UTF-16 encode: %w", err)
		}
		return out, nil
	default:
		out, err := c.enc.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("textenc: code page %d encode: %w", c.page, err)
		}
		return out, nil
	}
}

// DecodedLen returns the number of host bytes Decode would produce for
// b, without allocating the result when the encoding is UTF-8.
func (c *Codec) DecodedLen(b []byte) (int, error) {
	switch c.kind {
	case UTF8:
		return len(b), nil
	default:
		s, err := c.Decode(b)
		if err != nil {
			return 0, err
		}
		return len(s), nil
	}
}

// EncodedLen returns the number of external bytes Encode would produce
// for s.
func (c *Codec) EncodedLen(s string) (int, error) {
	switch c.kind {
	case UTF8:
		return len(s), nil
	case UTF16LE:
		n := 0
		for _, r := range s {
			if r >= 0x10000 {
				n += 4
			} else {
				n += 2
			}
		}
		return n, nil
	default:
		out, err := c.Encode(s)
		if err != nil {
			return 0, err
		}
		return len(out), nil
	}
}

// AppendEncoded encodes s and appends the external bytes to buf,
// staging directly into the buffer's reserved tail. buf is left
// unchanged on failure.
func (c *Codec) AppendEncoded(buf *textbuf.Buffer, s string) error {
	if c.kind == UTF8 {
		dst := buf.Reserve(len(s))
		copy(dst, s)
		buf.Commit(len(s))
		return nil
	}
	n, err := c.EncodedLen(s)
	if err != nil {
		return err
	}
	dst := buf.Reserve(n)
	nDst, _, err := c.enc.NewEncoder().Transform(dst, []byte(s), true)
	if err != nil {
		buf.Commit(0)
		if c.kind == UTF16LE {
			return fmt.Errorf("textenc: UTF-16 encode: %w", err)
		}
		return fmt.Errorf("textenc: code page %d encode: %w", c.page, err)
	}
	buf.Commit(nDst)
	return nil
}

// AppendDecoded decodes external bytes and appends the host text to
// buf. buf is left unchanged on failure.
func (c *Codec) AppendDecoded(buf *textbuf.Buffer, b []byte) error {
	if c.kind == UTF8 {
		dst := buf.Reserve(len(b))
		copy(dst, b)
		buf.Commit(len(b))
		return nil
	}
	if c.kind == UTF16LE && len(b)%2 != 0 {
		return fmt.Errorf("textenc: UTF-16 input has odd length %d", len(b))
	}
	n, err := c.DecodedLen(b)
	if err != nil {
		return err
	}
	dst := buf.Reserve(n)
	nDst, _, err := c.enc.NewDecoder().Transform(dst, b, true)
	if err != nil {
		buf.Commit(0)
		if c.kind == UTF16LE {
			return fmt.Errorf("textenc: UTF-16 decode: %w", err)
		}
		return fmt.Errorf("textenc: code page %d decode: %w", c.page, err)
	}
	buf.Commit(nDst)
	return nil
}

// ValidUTF8 reports whether b is well-formed UTF-8.
func ValidUTF8(b []byte) bool { return utf8.Valid(b) }
