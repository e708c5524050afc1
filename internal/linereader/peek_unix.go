//go:build linux || darwin || freebsd || netbsd || openbsd

package linereader

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// peekFile reports whether a read would find data, using a zero-timeout
// poll. The returned count is 1 when data (or end of stream) is
// observable and 0 when a read would block.
func peekFile(f *os.File) (int, error) {
	fds := []unix.PollFd{{Fd: int32(f.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("linereader: poll: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	// POLLHUP without POLLIN still means a read will not block: it
	// returns end of stream.
	return 1, nil
}
