//go:build !linux && !darwin && !windows

package fs

import (
	"os"
	"time"
)

// accessTime is approximated by the modify time on platforms whose stat
// layout we do not know.
func accessTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
