//go:build linux

package fsops

import (
	"io/fs"
	"syscall"
	"time"
)

// createdTime returns the inode change time, the closest thing to a creation
// timestamp Linux exposes through stat.
func createdTime(fi fs.FileInfo) time.Time {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return fi.ModTime()
}
