//go:build !linux && !windows

package filter

import (
	"os"
	"time"
)

func sysTimes(os.FileInfo) (access, create time.Time, err error) {
	return time.Time{}, time.Time{}, errUnsupportedMetadata
}

func sysLinkCount(os.FileInfo) (int64, error) {
	return 0, errUnsupportedMetadata
}

func sysAllocSize(info os.FileInfo) int64 {
	return info.Size()
}

func sysAttrs(os.FileInfo) uint32 {
	return 0
}

func sysShortName(string) (string, error) {
	return "", errUnsupportedMetadata
}

func sysOwner(os.FileInfo) (string, error) {
	return "", errUnsupportedMetadata
}
