//go:build windows

package linereader

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// peekFile reports the bytes available on a pipe without blocking.
func peekFile(f *os.File) (int, error) {
	var avail uint32
	err := windows.PeekNamedPipe(windows.Handle(f.Fd()), nil, 0, nil, &avail, nil)
	if err != nil {
		if err == windows.ERROR_BROKEN_PIPE {
			// Writer is gone; a Read will observe end of stream, so
			// report readable to break the wait loop.
			return 1, nil
		}
		return 0, fmt.Errorf("linereader: PeekNamedPipe: %w", err)
	}
	return int(avail), nil
}
