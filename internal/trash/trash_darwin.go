//go:build darwin

package trash

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func homeTrash(home string) string {
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".Trash")
}

// external volumes keep a per-user trash under /Volumes/<name>/.Trashes/<uid>
func volumeTrashes(mount string) []string {
	if !strings.HasPrefix(mount, "/Volumes/") {
		return nil
	}
	return []string{filepath.Join(mount, ".Trashes", strconv.Itoa(os.Getuid()))}
}

// Finder keeps no per-item bookkeeping next to trashed items
func forget(root, path string) error {
	return nil
}
