//go:build darwin

package marker

import "fmt"

func (s *systemIndex) command(ext string) (string, []string, error) {
	bin, err := s.lookPath("mdfind")
	if err != nil {
		return "", nil, ErrIndexUnavailable
	}
	args := []string{}
	if s.home != "" {
		args = append(args, "-onlyin", s.home)
	}
	args = append(args, fmt.Sprintf("kMDItemFSName == '*%s'", ext))
	return bin, args, nil
}
