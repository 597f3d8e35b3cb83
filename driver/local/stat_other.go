//go:build !linux && !darwin && !windows

package local

import "os"

// platformMetadata reports nothing on platforms without a wired
// ownership/birth-time extraction.
func platformMetadata(info os.FileInfo) map[string]string {
	return nil
}
