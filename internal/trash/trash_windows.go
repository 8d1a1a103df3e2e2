//go:build windows

package trash

import (
	"path/filepath"
)

// the recycle bin is per volume; there is no separate home trash
func homeTrash(home string) string {
	if home == "" {
		return ""
	}
	return filepath.Join(filepath.VolumeName(home)+`\`, "$Recycle.Bin")
}

func volumeTrashes(mount string) []string {
	if mount == "" {
		return nil
	}
	return []string{filepath.Join(filepath.VolumeName(mount)+`\`, "$Recycle.Bin")}
}

// recycle bin metadata lives in $I files that Explorer cleans up itself
func forget(root, path string) error {
	return nil
}
