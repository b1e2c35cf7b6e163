//go:build darwin

package fs

import (
	"os"
	"syscall"
	"time"
)

// accessTime digs the atime out of the platform stat structure, falling
// back to the modify time when the runtime hands us something else.
func accessTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Atimespec.Sec), int64(st.Atimespec.Nsec))
	}
	return info.ModTime()
}
