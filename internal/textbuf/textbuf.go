// Package textbuf provides the low-level text primitives shared by the
// conkit runtime: an append-only byte buffer with a reserve/commit
// protocol, and a set of counted-string helpers (folded comparison,
// span counting, number parsing and formatting) that the higher layers
// build on.
//
// The Buffer exists so that every I/O path in the runtime can grow its
// staging area without reallocating per read: callers reserve a writable
// tail, fill some prefix of it, and commit only the bytes that are valid.
package textbuf

import (
	"strings"
	"unicode"
)

// Buffer is an append-only byte buffer. The zero value is ready to use.
//
// Writers call Reserve to obtain a writable tail of at least n bytes,
// fill some prefix of it, and then call Commit with the number of bytes
// actually written. Bytes returns the committed contents.
type Buffer struct {
	buf []byte
	// n is the number of committed bytes; buf[n:] is reserved scratch.
	n int
}

// Reserve guarantees at least n writable bytes beyond the committed
// length and returns that tail. The returned slice is invalidated by the
// next call to Reserve or Reset.
func (b *Buffer) Reserve(n int) []byte {
	if cap(b.buf)-b.n < n {
		grown := make([]byte, b.n, grow(cap(b.buf), b.n+n))
		copy(grown, b.buf[:b.n])
		b.buf = grown
	}
	b.buf = b.buf[:b.n+n]
	return b.buf[b.n : b.n+n]
}

// Commit marks k bytes at the reserved tail as valid. k must not exceed
// the most recent reservation; Commit panics otherwise, since that can
// only be a caller bug.
func (b *Buffer) Commit(k int) {
	if k < 0 || b.n+k > len(b.buf) {
		panic("textbuf: Commit beyond reservation")
	}
	b.n += k
	b.buf = b.buf[:b.n]
}

// Len returns the committed length in bytes.
func (b *Buffer) Len() int { return b.n }

// Cap returns the allocated capacity in bytes.
func (b *Buffer) Cap() int { return cap(b.buf) }

// Bytes returns the committed contents. The slice aliases the buffer's
// storage and is invalidated by the next Reserve or Reset.
func (b *Buffer) Bytes() []byte { return b.buf[:b.n] }

// String returns the committed contents as a string.
func (b *Buffer) String() string { return string(b.buf[:b.n]) }

// Reset discards the committed contents, keeping the allocation.
func (b *Buffer) Reset() {
	b.n = 0
	b.buf = b.buf[:0]
}

// grow picks the next capacity: double until the requirement is met,
// starting from a small floor so tiny buffers do not thrash.
func grow(have, need int) int {
	if have < 64 {
		have = 64
	}
	for have < need {
		have *= 2
	}
	return have
}

// EqualFold reports whether a and b are equal under simple ASCII case
// folding. Non-ASCII bytes must match exactly, which matches how the
// host compares file names and environment variable names.
func EqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return CompareFold(a, b) == 0
}

// CompareFold compares a and b under ASCII case folding, returning
// -1, 0 or +1.
func CompareFold(a, b string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		ca, cb := foldByte(a[i]), foldByte(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func foldByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// TrimSpaces removes leading and trailing Unicode whitespace.
func TrimSpaces(s string) string {
	return strings.TrimFunc(s, unicode.IsSpace)
}

// Span returns the length of the longest prefix of s consisting only of
// bytes found in set.
func Span(s, set string) int {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(set, s[i]) < 0 {
			return i
		}
	}
	return len(s)
}

// NotSpan returns the length of the longest prefix of s containing no
// byte found in set.
func NotSpan(s, set string) int {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(set, s[i]) >= 0 {
			return i
		}
	}
	return len(s)
}

// ParseNumber parses a leading number from s and returns its value and
// the number of bytes consumed. A "0x" prefix selects base 16 and a "0"
// prefix base 8; anything else is decimal. If signed is true a single
// leading '-' negates the value. Zero consumed means no number was
// present.
func ParseNumber(s string, signed bool) (value int64, consumed int) {
	i := 0
	neg := false
	if signed && i < len(s) && s[i] == '-' {
		neg = true
		i++
	}
	base := int64(10)
	if i+2 <= len(s) && s[i] == '0' && i+1 < len(s) && (s[i+1] == 'x' || s[i+1] == 'X') {
		if _, ok := digitValue(byteAt(s, i+2), 16); ok {
			base = 16
			i += 2
		}
	} else if i < len(s) && s[i] == '0' {
		base = 8
	}
	start := i
	for i < len(s) {
		d, ok := digitValue(s[i], base)
		if !ok {
			break
		}
		value = value*base + d
		i++
	}
	if i == start {
		// No digits at all; an optional sign on its own consumes nothing.
		return 0, 0
	}
	if neg {
		value = -value
	}
	return value, i
}

func byteAt(s string, i int) byte {
	if i >= len(s) {
		return 0
	}
	return s[i]
}

func digitValue(c byte, base int64) (int64, bool) {
	var d int64
	switch {
	case c >= '0' && c <= '9':
		d = int64(c - '0')
	case c >= 'a' && c <= 'f':
		d = int64(c-'a') + 10
	case c >= 'A' && c <= 'F':
		d = int64(c-'A') + 10
	default:
		return 0, false
	}
	if d >= base {
		return 0, false
	}
	return d, true
}

// FormatNumber renders v in the given base, left-padded with pad to at
// least minWidth bytes. Base must be between 2 and 16.
func FormatNumber(v int64, base int, minWidth int, pad byte) string {
	const digits = "0123456789abcdef"
	if base < 2 || base > 16 {
		panic("textbuf: FormatNumber base out of range")
	}
	neg := v < 0
	u := uint64(v)
	if neg {
		u = uint64(-v)
	}
	var tmp [72]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = digits[u%uint64(base)]
		u /= uint64(base)
		if u == 0 {
			break
		}
	}
	if neg {
		i--
		tmp[i] = '-'
	}
	out := tmp[i:]
	if len(out) >= minWidth {
		return string(out)
	}
	var sb strings.Builder
	sb.Grow(minWidth)
	for n := minWidth - len(out); n > 0; n-- {
		sb.WriteByte(pad)
	}
	sb.Write(out)
	return sb.String()
}
