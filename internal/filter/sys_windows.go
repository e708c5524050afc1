//go:build windows

package filter

import (
	"os"
	"syscall"
	"time"
)

func sysTimes(info os.FileInfo) (access, create time.Time, err error) {
	d, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return time.Time{}, time.Time{}, errUnsupportedMetadata
	}
	access = time.Unix(0, d.LastAccessTime.Nanoseconds())
	create = time.Unix(0, d.CreationTime.Nanoseconds())
	return access, create, nil
}

func sysLinkCount(os.FileInfo) (int64, error) {
	// Link counts need an extra handle-based query here; the attribute
	// reports unsupported rather than guessing.
	return 0, errUnsupportedMetadata
}

func sysAllocSize(info os.FileInfo) int64 {
	// Round up to the typical cluster size.
	const cluster = 4096
	size := info.Size()
	return (size + cluster - 1) / cluster * cluster
}

func sysAttrs(info os.FileInfo) uint32 {
	d, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return 0
	}
	var attrs uint32
	if d.FileAttributes&syscall.FILE_ATTRIBUTE_HIDDEN != 0 {
		attrs |= AttrHidden
	}
	if d.FileAttributes&syscall.FILE_ATTRIBUTE_SYSTEM != 0 {
		attrs |= AttrSystem
	}
	if d.FileAttributes&syscall.FILE_ATTRIBUTE_ARCHIVE != 0 {
		attrs |= AttrArchive
	}
	if d.FileAttributes&syscall.FILE_ATTRIBUTE_REPARSE_POINT != 0 {
		attrs |= AttrReparse
	}
	return attrs
}

func sysShortName(path string) (string, error) {
	p, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return "", errUnsupportedMetadata
	}
	buf := make([]uint16, 260)
	for {
		n, err := syscall.GetShortPathName(p, &buf[0], uint32(len(buf)))
		if err != nil {
			return "", errUnsupportedMetadata
		}
		if int(n) < len(buf) {
			return syscall.UTF16ToString(buf[:n]), nil
		}
		// n is the required length including the terminator.
		buf = make([]uint16, n)
	}
}

func sysOwner(os.FileInfo) (string, error) {
	// Owner lookup needs a handle-based security descriptor query; the
	// attribute reports unsupported rather than guessing.
	return "", errUnsupportedMetadata
}
