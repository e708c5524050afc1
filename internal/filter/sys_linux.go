//go:build linux

package filter

import (
	"os"
	"os/user"
	"strconv"
	"syscall"
	"time"
)

func sysTimes(info os.FileInfo) (access, create time.Time, err error) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, time.Time{}, errUnsupportedMetadata
	}
	access = time.Unix(st.Atim.Sec, st.Atim.Nsec)
	// There is no birth time here; the inode change time is the closest
	// available stand-in.
	create = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	return access, create, nil
}

func sysLinkCount(info os.FileInfo) (int64, error) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, errUnsupportedMetadata
	}
	return int64(st.Nlink), nil
}

func sysAllocSize(info os.FileInfo) int64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Blocks * 512
	}
	return info.Size()
}

func sysAttrs(os.FileInfo) uint32 {
	return 0
}

func sysShortName(string) (string, error) {
	// 8.3 aliases are a Windows filesystem feature.
	return "", errUnsupportedMetadata
}

func sysOwner(info os.FileInfo) (string, error) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "", errUnsupportedMetadata
	}
	uid := strconv.FormatUint(uint64(st.Uid), 10)
	if u, err := user.LookupId(uid); err == nil {
		return u.Username, nil
	}
	return uid, nil
}
