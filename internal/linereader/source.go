package linereader

import (
	"fmt"
	"os"
)

// Source is the byte stream a Reader pulls from. Pipes additionally
// support a non-blocking peek so the refill loop can wait with bounded
// sleeps instead of committing to a blocking read.
type Source interface {
	// Read fills p with up to len(p) bytes, blocking until at least one
	// byte or end of stream.
	Read(p []byte) (int, error)

	// IsPipe reports whether the stream is a pipe rather than a regular
	// file or device.
	IsPipe() bool

	// Peek reports how many bytes a Read could return without
	// blocking. Only meaningful when IsPipe; regular files always have
	// data or EOF.
	Peek() (int, error)
}

// FileSource adapts an *os.File, caching the stream-type classification
// from a single Stat call.
type FileSource struct {
	f    *os.File
	pipe bool
}

// NewFileSource classifies f and returns a source over it.
func NewFileSource(f *os.File) (*FileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("linereader: stat source: %w", err)
	}
	mode := info.Mode()
	return &FileSource{
		f:    f,
		pipe: mode&(os.ModeNamedPipe|os.ModeSocket) != 0,
	}, nil
}

// Read reads from the underlying file.
func (s *FileSource) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

// IsPipe reports the cached stream classification.
func (s *FileSource) IsPipe() bool {
	return s.pipe
}

// Peek reports the bytes readable without blocking.
func (s *FileSource) Peek() (int, error) {
	return peekFile(s.f)
}
