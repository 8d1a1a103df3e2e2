package marker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

// ErrIndexUnavailable means the platform has no usable file index
var ErrIndexUnavailable = errors.New("indexed search unavailable")

const indexTimeout = 5 * time.Second

// IndexedSearch answers "which files end in ext" from a prebuilt index.
// It is best effort; callers fall back to scanning on any error.
type IndexedSearch interface {
	QueryByExtension(ctx context.Context, ext string) ([]string, error)
}

// IndexFunc adapts a function to IndexedSearch
type IndexFunc func(ctx context.Context, ext string) ([]string, error)

func (f IndexFunc) QueryByExtension(ctx context.Context, ext string) ([]string, error) {
	return f(ctx, ext)
}

// SystemIndex returns the platform index limited to home
func SystemIndex(home string) IndexedSearch {
	return &systemIndex{home: home, lookPath: exec.LookPath}
}

type systemIndex struct {
	home     string
	lookPath func(string) (string, error)
}

func (s *systemIndex) QueryByExtension(ctx context.Context, ext string) ([]string, error) {
	name, args, err := s.command(ext)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		// locate exits 1 when nothing matched
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && len(out) == 0 {
			return nil, nil
		}
		return nil, err
	}
	return s.filter(out), nil
}

// filter keeps absolute paths inside home
func (s *systemIndex) filter(out []byte) []string {
	var hits []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if s.home != "" && !utils.IsSubPath(s.home, line) {
			continue
		}
		hits = append(hits, line)
	}
	return hits
}
