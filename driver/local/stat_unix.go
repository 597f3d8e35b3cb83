//go:build linux || darwin

package local

import (
	"os"
	"strconv"
	"syscall"
	"time"
)

// platformMetadata extracts owner and creation time on Unix systems.
// Entries end up in FileInfo.Metadata under the "owner" and "created"
// keys, where intake audit records pick them up.
func platformMetadata(info os.FileInfo) map[string]string {
	sys := info.Sys()
	if sys == nil {
		return nil
	}

	stat, ok := sys.(*syscall.Stat_t)
	if !ok {
		return nil
	}

	meta := map[string]string{
		"owner": strconv.FormatUint(uint64(stat.Uid), 10),
	}

	if t := birthTime(stat); t != nil {
		meta["created"] = t.UTC().Format(time.RFC3339)
	}

	return meta
}
