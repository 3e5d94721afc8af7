//go:build !linux

package fsops

import (
	"io/fs"
	"time"
)

func createdTime(fi fs.FileInfo) time.Time {
	return fi.ModTime()
}
