//go:build unix && !darwin

package marker

const locateLimit = "5000"

// prefers plocate, falls back to mlocate/busybox locate
func (s *systemIndex) command(ext string) (string, []string, error) {
	for _, name := range []string{"plocate", "locate"} {
		if bin, err := s.lookPath(name); err == nil {
			return bin, []string{"-b", "-l", locateLimit, "*" + ext}, nil
		}
	}
	return "", nil, ErrIndexUnavailable
}
