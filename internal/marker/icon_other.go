//go:build !darwin && !linux

package marker

func setFolderIcon(dir, icon string) error {
	return nil
}
