//go:build darwin

package token

import (
	"golang.org/x/sys/unix"
)

// birthTime is the creation time in unix nanoseconds, 0 when unknown
func birthTime(path string) int64 {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0
	}
	return st.Birthtimespec.Nano()
}
