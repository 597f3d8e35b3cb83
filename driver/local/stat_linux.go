//go:build linux

package local

import (
	"syscall"
	"time"
)

// birthTime reports no creation time on Linux. Standard syscall.Stat_t
// does not carry it; statx() does, but needs kernel 4.11+ and filesystem
// support, so we do not chase it.
func birthTime(stat *syscall.Stat_t) *time.Time {
	return nil
}
