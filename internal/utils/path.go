package utils

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path cannot be empty")
	}

	// Expand `~` to the user's home directory
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.New("failed to retrieve home directory")
		}
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// Resolve relative paths (.., .) and return an absolute path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return filepath.Clean(absPath), nil
}

func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	return EnsureDir(dir)
}

func EnsureDir(path string) error {
	// already exists
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.MkdirAll(path, 0o755)
}

func DirExists(path string) bool {
	// check if the path is a directory
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func FileExists(path string) bool {
	// check if the path is a file
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// PathExists reports whether anything (file, dir, symlink target) lives at path.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func IsWritable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0o200 != 0
}

// IsHidden reports whether the base name of path is a dot-file
func IsHidden(path string) bool {
	name := filepath.Base(path)
	return len(name) > 1 && strings.HasPrefix(name, ".") && name != ".."
}

// NormalizePath cleans an absolute path for comparisons. Case is folded on
// platforms whose default filesystems are case-insensitive.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.Clean(path)
	if caseInsensitiveFS() {
		path = strings.ToLower(path)
	}
	return path
}

// SamePath compares two paths after normalization
func SamePath(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	return NormalizePath(a) == NormalizePath(b)
}

// IsSubPath returns true if child is parent itself or lives below it.
// The comparison respects separator boundaries so "/a/Trashy" is not inside "/a/Trash".
func IsSubPath(parent, child string) bool {
	if parent == "" || child == "" {
		return false
	}
	p := NormalizePath(parent)
	c := NormalizePath(child)
	if p == c {
		return true
	}
	if !strings.HasSuffix(p, string(filepath.Separator)) {
		p += string(filepath.Separator)
	}
	return strings.HasPrefix(c, p)
}

func caseInsensitiveFS() bool {
	return runtime.GOOS == "darwin" || runtime.GOOS == "windows"
}
