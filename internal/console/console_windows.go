//go:build windows

package console

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// platformCapability wires the capability record to the Windows console
// API.
func platformCapability() *Capability {
	return &Capability{
		SetTextAttribute: func(f *os.File, attr Attr) error {
			if err := windows.SetConsoleTextAttribute(windows.Handle(f.Fd()), uint16(attr)); err != nil {
				return fmt.Errorf("console: SetConsoleTextAttribute: %w", err)
			}
			return nil
		},
		TextAttributes: func(f *os.File) (Attr, error) {
			var info windows.ConsoleScreenBufferInfo
			if err := windows.GetConsoleScreenBufferInfo(windows.Handle(f.Fd()), &info); err != nil {
				return 0, fmt.Errorf("console: GetConsoleScreenBufferInfo: %w", err)
			}
			return Attr(info.Attributes), nil
		},
	}
}
