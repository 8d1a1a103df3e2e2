//go:build unix

package token

import (
	"golang.org/x/sys/unix"
)

func statID(path string) (fileID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileID{}, err
	}
	return fileID{Volume: uint64(st.Dev), Index: uint64(st.Ino)}, nil
}
