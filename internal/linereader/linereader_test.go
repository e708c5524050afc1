package linereader

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mtrellis/conkit/internal/textenc"
)

// scriptSource serves a scripted sequence of chunks. As a pipe, chunks
// after the script are reported unavailable until the script advances;
// once drained it reports end of stream.
type scriptSource struct {
	chunks []string
	i      int
	pipe   bool

	// starve counts peek calls that report no data before the next
	// chunk becomes visible; used to exercise the wait loop.
	starve int
}

func (s *scriptSource) IsPipe() bool { return s.pipe }

func (s *scriptSource) Peek() (int, error) {
	if s.starve > 0 {
		s.starve--
		return 0, nil
	}
	if s.i < len(s.chunks) {
		return len(s.chunks[s.i]), nil
	}
	// Drained: a read will observe EOF without blocking.
	return 1, nil
}

func (s *scriptSource) Read(p []byte) (int, error) {
	if s.i >= len(s.chunks) {
		return 0, io.EOF
	}
	n := copy(p, s.chunks[s.i])
	if n == len(s.chunks[s.i]) {
		s.i++
	} else {
		s.chunks[s.i] = s.chunks[s.i][n:]
	}
	return n, nil
}

// starvingSource never has data.
type starvingSource struct{}

func (starvingSource) IsPipe() bool         { return true }
func (starvingSource) Peek() (int, error)   { return 0, nil }
func (starvingSource) Read([]byte) (int, error) {
	return 0, io.EOF
}

func newTestReader(src Source) *Reader {
	// Bypass the cache so tests do not observe each other's buffers.
	r := &Reader{buf: make([]byte, defaultBufSize)}
	r.src = src
	r.codec = textenc.New(textenc.UTF8, 0)
	return r
}

func readAll(t *testing.T, r *Reader, opts Options) ([]string, []Ending) {
	t.Helper()
	var lines []string
	var endings []Ending
	for {
		line, ending, err := r.ReadLine(context.Background(), opts)
		if errors.Is(err, io.EOF) {
			return lines, endings
		}
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		lines = append(lines, line)
		endings = append(endings, ending)
	}
}

func TestReadLineBasic(t *testing.T) {
	r := newTestReader(&scriptSource{chunks: []string{"hello\r\nworld\n"}})

	lines, endings := readAll(t, r, Options{})

	if len(lines) != 2 || lines[0] != "hello" || lines[1] != "world" {
		t.Fatalf("lines = %q", lines)
	}
	if endings[0] != EndingCRLF || endings[1] != EndingLF {
		t.Errorf("endings = %v, want [CRLF LF]", endings)
	}

	// End of stream is sticky.
	if _, _, err := r.ReadLine(context.Background(), Options{}); !errors.Is(err, io.EOF) {
		t.Errorf("read after EOF = %v, want io.EOF", err)
	}
}

func TestReadLineEndings(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		lines   []string
		endings []Ending
	}{
		{"lf only", "a\nb\n", []string{"a", "b"}, []Ending{EndingLF, EndingLF}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}, []Ending{EndingCRLF, EndingCRLF}},
		{"bare cr", "a\rb\r", []string{"a", "b"}, []Ending{EndingCR, EndingCR}},
		{"mixed", "a\nb\r\nc\r", []string{"a", "b", "c"}, []Ending{EndingLF, EndingCRLF, EndingCR}},
		{"empty lines", "\n\n", []string{"", ""}, []Ending{EndingLF, EndingLF}},
		{"crlf then empty", "x\r\n\r\n", []string{"x", ""}, []Ending{EndingCRLF, EndingCRLF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReader(&scriptSource{chunks: []string{tt.input}})
			lines, endings := readAll(t, r, Options{})

			if len(lines) != len(tt.lines) {
				t.Fatalf("lines = %q, want %q", lines, tt.lines)
			}
			for i := range tt.lines {
				if lines[i] != tt.lines[i] || endings[i] != tt.endings[i] {
					t.Errorf("line %d = (%q, %v), want (%q, %v)",
						i, lines[i], endings[i], tt.lines[i], tt.endings[i])
				}
			}
		})
	}
}

func TestReadLineReconstructsStream(t *testing.T) {
	input := "first\r\nsecond\nthird\rfourth\r\n\r\ntail"
	r := newTestReader(&scriptSource{chunks: []string{input}})

	var rebuilt strings.Builder
	for {
		line, ending, err := r.ReadLine(context.Background(), Options{ReturnFinalPartial: true})
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		rebuilt.WriteString(line)
		switch ending {
		case EndingCR:
			rebuilt.WriteString("\r")
		case EndingLF:
			rebuilt.WriteString("\n")
		case EndingCRLF:
			rebuilt.WriteString("\r\n")
		}
	}

	if rebuilt.String() != input {
		t.Errorf("reconstruction = %q, want %q", rebuilt.String(), input)
	}
}

func TestReadLineFinalPartial(t *testing.T) {
	r := newTestReader(&scriptSource{chunks: []string{"done\npartial"}})
	lines, endings := readAll(t, r, Options{ReturnFinalPartial: true})

	if len(lines) != 2 || lines[1] != "partial" || endings[1] != EndingNone {
		t.Errorf("lines = %q endings = %v, want trailing partial with no ending", lines, endings)
	}

	r = newTestReader(&scriptSource{chunks: []string{"done\npartial"}})
	lines, _ = readAll(t, r, Options{})
	if len(lines) != 1 {
		t.Errorf("without ReturnFinalPartial lines = %q, want just %q", lines, "done")
	}
}

func TestReadLineUTF8BOMSkippedOnFirstLineOnly(t *testing.T) {
	r := newTestReader(&scriptSource{chunks: []string{"\xef\xbb\xbfone\ntwo\n"}})
	lines, _ := readAll(t, r, Options{})

	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("lines = %q, want [one two]", lines)
	}
}

func TestReadLineUTF16(t *testing.T) {
	// BOM + "hi\r\nyo\n" in UTF-16LE.
	input := "\xff\xfe" + "h\x00i\x00\r\x00\n\x00y\x00o\x00\n\x00"
	r := newTestReader(&scriptSource{chunks: []string{input}})
	r.codec = textenc.New(textenc.UTF16LE, 0)
	r.wide = true

	lines, endings := readAll(t, r, Options{})

	if len(lines) != 2 || lines[0] != "hi" || lines[1] != "yo" {
		t.Fatalf("lines = %q, want [hi yo]", lines)
	}
	if endings[0] != EndingCRLF || endings[1] != EndingLF {
		t.Errorf("endings = %v", endings)
	}
}

func TestReadLineUTF16NoFalseTerminators(t *testing.T) {
	// U+0A6B is a single character whose low byte is 0x0A; scanned in
	// 2-byte units it must not read as a line feed.
	input := "a\x00\x6b\x0ab\x00\n\x00"
	r := newTestReader(&scriptSource{chunks: []string{input}})
	r.codec = textenc.New(textenc.UTF16LE, 0)
	r.wide = true

	lines, _ := readAll(t, r, Options{})
	if len(lines) != 1 {
		t.Fatalf("lines = %q, want one line", lines)
	}
}

func TestReadLineCRAtChunkBoundary(t *testing.T) {
	// The CR arrives at the end of one pipe chunk and the LF in the
	// next; the reader must report one CR-LF terminated line.
	src := &scriptSource{chunks: []string{"line\r", "\nnext\n"}, pipe: true}
	r := newTestReader(src)

	lines, endings := readAll(t, r, Options{})

	if len(lines) != 2 || lines[0] != "line" || lines[1] != "next" {
		t.Fatalf("lines = %q", lines)
	}
	if endings[0] != EndingCRLF {
		t.Errorf("split CR-LF reported as %v, want CRLF", endings[0])
	}
}

func TestReadLineTrailingCRAtEOF(t *testing.T) {
	r := newTestReader(&scriptSource{chunks: []string{"line\r"}})
	lines, endings := readAll(t, r, Options{})

	if len(lines) != 1 || endings[0] != EndingCR {
		t.Errorf("lines = %q endings = %v, want one CR-ended line", lines, endings)
	}
}

func TestReadLineTooLong(t *testing.T) {
	big := strings.Repeat("x", defaultBufSize+1)
	r := newTestReader(&scriptSource{chunks: []string{big}})

	_, _, err := r.ReadLine(context.Background(), Options{})
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("err = %v, want ErrLineTooLong", err)
	}

	// The stream is terminated: further reads return EOF immediately.
	if _, _, err := r.ReadLine(context.Background(), Options{}); !errors.Is(err, io.EOF) {
		t.Errorf("read after LineTooLong = %v, want io.EOF", err)
	}
}

func TestReadLineExactlyBufferSized(t *testing.T) {
	// A line of exactly the buffer size minus its terminator must still
	// come through.
	line := strings.Repeat("y", defaultBufSize-1)
	r := newTestReader(&scriptSource{chunks: []string{line + "\n"}})

	lines, _ := readAll(t, r, Options{})
	if len(lines) != 1 || len(lines[0]) != defaultBufSize-1 {
		t.Errorf("got %d lines, first %d bytes", len(lines), len(lines[0]))
	}
}

func TestReadLineTimeout(t *testing.T) {
	r := newTestReader(starvingSource{})

	start := time.Now()
	_, _, err := r.ReadLine(context.Background(), Options{Timeout: 5 * time.Millisecond})
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}

	// A timeout does not terminate the stream.
	if r.terminated {
		t.Errorf("reader terminated by timeout")
	}
}

func TestReadLineTimeoutThenData(t *testing.T) {
	src := &scriptSource{chunks: []string{"late\n"}, pipe: true, starve: 1000}
	r := newTestReader(src)

	if _, _, err := r.ReadLine(context.Background(), Options{Timeout: 3 * time.Millisecond}); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("first read err = %v, want ErrTimedOut", err)
	}

	src.starve = 0
	line, _, err := r.ReadLine(context.Background(), Options{})
	if err != nil || line != "late" {
		t.Errorf("read after timeout = (%q, %v), want (late, nil)", line, err)
	}
}

func TestReadLineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestReader(starvingSource{})
	_, _, err := r.ReadLine(ctx, Options{})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}

	// Cancellation terminates the stream.
	if _, _, err := r.ReadLine(context.Background(), Options{}); !errors.Is(err, io.EOF) {
		t.Errorf("read after cancel = %v, want io.EOF", err)
	}
}

func TestReadLineCancellationWinsOverData(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestReader(&scriptSource{chunks: []string{"data\n"}, pipe: true})
	if _, _, err := r.ReadLine(ctx, Options{}); !errors.Is(err, ErrCancelled) {
		t.Errorf("err = %v, want ErrCancelled even with data pending", err)
	}
}

func TestCacheReuse(t *testing.T) {
	CleanupCache()
	defer CleanupCache()

	src := &scriptSource{chunks: []string{"x\n"}}
	r := New(src, textenc.New(textenc.UTF8, 0))
	if _, _, err := r.ReadLine(context.Background(), Options{}); err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	r.CloseOrCache()

	r2 := New(&scriptSource{chunks: []string{"y\n"}}, textenc.New(textenc.UTF8, 0))
	if r2 != r {
		t.Errorf("cached state not reused")
	}
	line, _, err := r2.ReadLine(context.Background(), Options{})
	if err != nil || line != "y" {
		t.Errorf("recycled reader read = (%q, %v), want (y, nil)", line, err)
	}
	r2.Close()
}

func TestCacheCapacity(t *testing.T) {
	CleanupCache()
	defer CleanupCache()

	readers := make([]*Reader, cacheSlots+2)
	for i := range readers {
		readers[i] = New(&scriptSource{}, textenc.New(textenc.UTF8, 0))
	}
	for _, r := range readers {
		r.CloseOrCache()
	}

	// Only cacheSlots states can be recovered.
	recovered := 0
	for takeCached() != nil {
		recovered++
	}
	if recovered != cacheSlots {
		t.Errorf("recovered %d states, want %d", recovered, cacheSlots)
	}
}

func TestCleanupCache(t *testing.T) {
	CleanupCache()
	New(&scriptSource{}, textenc.New(textenc.UTF8, 0)).CloseOrCache()
	CleanupCache()
	if takeCached() != nil {
		t.Errorf("cache not empty after CleanupCache")
	}
}
