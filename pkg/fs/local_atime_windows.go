//go:build windows

package fs

import (
	"os"
	"syscall"
	"time"
)

// accessTime digs the atime out of the platform stat structure, falling
// back to the modify time when the runtime hands us something else.
func accessTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, st.LastAccessTime.Nanoseconds())
	}
	return info.ModTime()
}
