//go:build !unix

package marker

func (s *systemIndex) command(ext string) (string, []string, error) {
	return "", nil, ErrIndexUnavailable
}
