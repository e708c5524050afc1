package textenc

import (
	"bytes"
	"testing"

	"github.com/mtrellis/conkit/internal/textbuf"
)

func TestDetectBOM(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		kind     Kind
		consumed int
	}{
		{"utf8 bom", []byte{0xef, 0xbb, 0xbf, 'h', 'i'}, UTF8, 3},
		{"utf16le bom", []byte{0xff, 0xfe, 'h', 0}, UTF16LE, 2},
		{"no bom", []byte("hello"), UTF8, 0},
		{"empty", nil, UTF8, 0},
		{"truncated utf8 bom", []byte{0xef, 0xbb}, UTF8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, consumed := DetectBOM(tt.input)
			if kind != tt.kind || consumed != tt.consumed {
				t.Errorf("DetectBOM = (%v, %d), want (%v, %d)", kind, consumed, tt.kind, tt.consumed)
			}
		})
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	c := New(UTF16LE, 0)

	encoded, err := c.Encode("héllo")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(encoded)%2 != 0 {
		t.Fatalf("UTF-16 output has odd length %d", len(encoded))
	}

	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != "héllo" {
		t.Errorf("round trip = %q, want %q", decoded, "héllo")
	}
}

func TestUTF16DecodeLittleEndian(t *testing.T) {
	c := New(UTF16LE, 0)

	// "AB" in UTF-16LE.
	got, err := c.Decode([]byte{'A', 0, 'B', 0})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "AB" {
		t.Errorf("Decode = %q, want %q", got, "AB")
	}
}

func TestUTF16OddLengthFails(t *testing.T) {
	c := New(UTF16LE, 0)
	if _, err := c.Decode([]byte{'A', 0, 'B'}); err == nil {
		t.Errorf("odd-length UTF-16 decode did not fail")
	}
}

func TestCodePageRoundTrip(t *testing.T) {
	c := New(CodePage, 1252)

	encoded, err := c.Encode("café")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(encoded) != 4 {
		t.Fatalf("Windows-1252 encode of %q = %d bytes, want 4", "café", len(encoded))
	}

	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != "café" {
		t.Errorf("round trip = %q, want %q", decoded, "café")
	}
}

func TestUTF8Passthrough(t *testing.T) {
	c := New(UTF8, 0)

	in := []byte("plain ascii and ünïcode")
	out, err := c.Decode(in)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out != string(in) {
		t.Errorf("UTF-8 decode changed bytes")
	}

	back, err := c.Encode(out)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(back, in) {
		t.Errorf("UTF-8 encode changed bytes")
	}
}

func TestFromSpec(t *testing.T) {
	tests := []struct {
		spec string
		kind Kind
	}{
		{"", UTF8},
		{"utf8", UTF8},
		{"UTF-8", UTF8},
		{"utf16", UTF16LE},
		{"utf-16le", UTF16LE},
		{"1252", CodePage},
		{"437", CodePage},
		{"garbage", UTF8},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if got := fromSpec(tt.spec); got.Kind() != tt.kind {
				t.Errorf("fromSpec(%q).Kind() = %v, want %v", tt.spec, got.Kind(), tt.kind)
			}
		})
	}
}

func TestWide(t *testing.T) {
	if New(UTF8, 0).Wide() {
		t.Errorf("UTF8 codec reports wide")
	}
	if !New(UTF16LE, 0).Wide() {
		t.Errorf("UTF16LE codec does not report wide")
	}
}

func TestEncodedLen(t *testing.T) {
	c := New(UTF16LE, 0)
	n, err := c.EncodedLen("ab\U0001F600")
	if err != nil {
		t.Fatalf("EncodedLen: %v", err)
	}
	// Two BMP runes plus one surrogate pair.
	if n != 8 {
		t.Errorf("EncodedLen = %d, want 8", n)
	}
}

func TestAppendEncodedStagesIntoBuffer(t *testing.T) {
	var buf textbuf.Buffer

	c := New(UTF16LE, 0)
	if err := c.AppendEncoded(&buf, "hi"); err != nil {
		t.Fatalf("AppendEncoded: %v", err)
	}
	want := []byte{'h', 0, 'i', 0}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("AppendEncoded wrote % x, want % x", buf.Bytes(), want)
	}

	// A second append lands after the first; the buffer accumulates.
	if err := c.AppendEncoded(&buf, "!"); err != nil {
		t.Fatalf("AppendEncoded: %v", err)
	}
	if buf.Len() != 6 {
		t.Errorf("buffer length = %d after second append, want 6", buf.Len())
	}
}

func TestAppendDecodedRoundTrip(t *testing.T) {
	codecs := []*Codec{New(UTF8, 0), New(UTF16LE, 0), New(CodePage, 850)}
	for _, c := range codecs {
		t.Run(c.Kind().String(), func(t *testing.T) {
			var enc textbuf.Buffer
			if err := c.AppendEncoded(&enc, "round trip"); err != nil {
				t.Fatalf("AppendEncoded: %v", err)
			}
			var dec textbuf.Buffer
			if err := c.AppendDecoded(&dec, enc.Bytes()); err != nil {
				t.Fatalf("AppendDecoded: %v", err)
			}
			if dec.String() != "round trip" {
				t.Errorf("round trip = %q", dec.String())
			}
		})
	}
}

func TestAppendDecodedOddUTF16LeavesBuffer(t *testing.T) {
	var buf textbuf.Buffer
	c := New(UTF16LE, 0)
	if err := c.AppendDecoded(&buf, []byte{'h', 0, 'i'}); err == nil {
		t.Fatalf("AppendDecoded accepted odd-length input")
	}
	if buf.Len() != 0 {
		t.Errorf("failed decode left %d bytes in the buffer", buf.Len())
	}
}
