package vt

import (
	"bytes"
	"testing"
)

func normalize(t *testing.T, ending string, chunks ...string) string {
	t.Helper()
	var out bytes.Buffer
	n := NewNormalizer(&out, ending)
	for _, c := range chunks {
		if _, err := n.Write([]byte(c)); err != nil {
			t.Fatalf("Write(%q): %v", c, err)
		}
	}
	if err := n.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return out.String()
}

func TestNormalizer(t *testing.T) {
	tests := []struct {
		name   string
		ending string
		in     string
		want   string
	}{
		{"lf to crlf", "\r\n", "a\nb\n", "a\r\nb\r\n"},
		{"cr to crlf", "\r\n", "a\rb", "a\r\nb"},
		{"crlf stays single", "\r\n", "a\r\nb", "a\r\nb"},
		{"mixed endings", "\n", "a\r\nb\rc\nd", "a\nb\nc\nd"},
		{"no endings", "\r\n", "plain", "plain"},
		{"only terminator", "\r\n", "\n", "\r\n"},
		{"trailing cr", "\r\n", "a\r", "a\r\n"},
		{"empty", "\r\n", "", ""},
		{"custom literal", "|", "a\r\nb\nc\r", "a|b|c|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(t, tt.ending, tt.in)
			if got != tt.want {
				t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizerDoesNotSplitCRLFAcrossWrites(t *testing.T) {
	got := normalize(t, "|", "a\r", "\nb")
	if got != "a|b" {
		t.Errorf("CR-LF split across writes = %q, want %q", got, "a|b")
	}
}

func TestNormalizerBareCRThenText(t *testing.T) {
	got := normalize(t, "|", "a\r", "b")
	if got != "a|b" {
		t.Errorf("bare CR at chunk end = %q, want %q", got, "a|b")
	}
}

func TestNormalizerIdempotent(t *testing.T) {
	const ending = "\r\n"
	inputs := []string{"a\nb\rc\r\nd", "x\r\n\r\ny", "\r\r\n\n"}

	for _, in := range inputs {
		once := normalize(t, ending, in)
		twice := normalize(t, ending, once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestLineEndingHolder(t *testing.T) {
	defer SetLineEnding("\r\n")

	if got := LineEnding(); got != "\r\n" {
		t.Errorf("default line ending = %q, want CRLF", got)
	}
	SetLineEnding("\n")
	if got := LineEnding(); got != "\n" {
		t.Errorf("line ending after set = %q, want LF", got)
	}
}
