//go:build !linux && !darwin && !windows

package token

// birthTime is unknown here; tokens fall back to the file id alone
func birthTime(path string) int64 {
	return 0
}
