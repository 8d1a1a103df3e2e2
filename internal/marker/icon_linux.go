//go:build linux

package marker

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

// GNOME file managers read the custom-icon attribute through gvfs
func setFolderIcon(dir, icon string) error {
	if !utils.DirExists(dir) {
		return fmt.Errorf("set folder icon: dir does not exist: %s", dir)
	}
	abs, err := filepath.Abs(icon)
	if err != nil {
		return fmt.Errorf("set folder icon: %w", err)
	}
	gio, err := exec.LookPath("gio")
	if err != nil {
		return fmt.Errorf("set folder icon: gio not found: %w", err)
	}
	output, err := exec.Command(gio, "set", "-t", "string", dir, "metadata::custom-icon", "file://"+abs).CombinedOutput()
	if err != nil {
		return fmt.Errorf("set folder icon: gio error %q: %w", string(output), err)
	}
	return nil
}
