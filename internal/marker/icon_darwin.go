//go:build darwin

package marker

import (
	"fmt"
	"os/exec"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

func setFolderIcon(dir, icon string) error {
	targetDir, err := utils.ResolvePath(dir)
	if err != nil {
		return fmt.Errorf("set folder icon: failed to resolve dir '%s': %w", dir, err)
	}
	if !utils.DirExists(targetDir) {
		return fmt.Errorf("set folder icon: dir does not exist: %s", targetDir)
	}
	if !utils.FileExists(icon) {
		return fmt.Errorf("set folder icon: icon does not exist: %s", icon)
	}

	// see https://github.com/mklement0/fileicon/blob/master/bin/fileicon
	appleScript := fmt.Sprintf(`
    use framework "Cocoa"

    set sourcePath to "%s"
    set destPath to "%s"

    set imageData to (current application's NSImage's alloc()'s initWithContentsOfFile:sourcePath)
    (current application's NSWorkspace's sharedWorkspace()'s setIcon:imageData forFile:destPath options:2)
	`, icon, targetDir)

	output, err := exec.Command("osascript", "-e", appleScript).CombinedOutput()
	if err != nil {
		return fmt.Errorf("set folder icon: osascript error %q: %w", string(output), err)
	}
	return nil
}
