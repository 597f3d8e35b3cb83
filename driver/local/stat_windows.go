//go:build windows

package local

import (
	"os"
	"syscall"
	"time"
)

// platformMetadata extracts the creation time on Windows. Owner lookup
// needs GetSecurityInfo and friends, which is not worth the trouble here,
// so only the "created" key is populated.
func platformMetadata(info os.FileInfo) map[string]string {
	sys := info.Sys()
	if sys == nil {
		return nil
	}

	// On Windows, Sys() returns *syscall.Win32FileAttributeData
	data, ok := sys.(*syscall.Win32FileAttributeData)
	if !ok {
		return nil
	}

	t := time.Unix(0, data.CreationTime.Nanoseconds())
	if t.IsZero() {
		return nil
	}

	return map[string]string{
		"created": t.UTC().Format(time.RFC3339),
	}
}
