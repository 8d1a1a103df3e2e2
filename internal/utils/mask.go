package utils

// MaskSecret keeps the first four characters of a secret for log lines.
// Short secrets are hidden entirely.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "*****"
	}
	return s[:4] + "*****"
}
