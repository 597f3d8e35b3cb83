//go:build darwin

package local

import (
	"syscall"
	"time"
)

// birthTime extracts the file creation time on macOS, which carries it
// natively in Birthtimespec.
func birthTime(stat *syscall.Stat_t) *time.Time {
	t := time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
	if t.IsZero() {
		return nil
	}
	return &t
}
