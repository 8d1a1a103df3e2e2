//go:build unix && !darwin

package trash

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const trashInfoExt = ".trashinfo"

// homeTrash follows the freedesktop.org trash specification
func homeTrash(home string) string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" && filepath.IsAbs(dataHome) {
		return filepath.Join(dataHome, "Trash")
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".local", "share", "Trash")
}

func volumeTrashes(mount string) []string {
	if mount == "" || mount == "/" {
		return nil
	}
	uid := strconv.Itoa(os.Getuid())
	return []string{
		filepath.Join(mount, ".Trash", uid),
		filepath.Join(mount, ".Trash-"+uid),
	}
}

// forget removes the .trashinfo record of a top level item in <root>/files
func forget(root, path string) error {
	rel, err := filepath.Rel(filepath.Join(root, "files"), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return nil
	}
	info := filepath.Join(root, "info", rel+trashInfoExt)
	if err := os.Remove(info); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
