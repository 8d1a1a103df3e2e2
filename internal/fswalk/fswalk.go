// Package fswalk walks directory trees with a depth bound, skipping hidden entries,
// package-like bundles and caller supplied glob patterns.
package fswalk

import (
	"context"
	"errors"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kr/fs"
)

// directories that look like a single file to the user
var bundleExts = mapset.NewThreadUnsafeSet(
	".app", ".bundle", ".framework", ".plugin", ".kext", ".pkg", ".mpkg",
	".photoslibrary", ".musiclibrary", ".tvlibrary", ".xcodeproj", ".xcworkspace",
	".xcarchive", ".playground", ".rtfd", ".pages", ".numbers", ".key", ".sparsebundle",
)

// IsBundle reports whether a directory name carries a bundle extension
func IsBundle(name string) bool {
	return bundleExts.Contains(strings.ToLower(filepath.Ext(name)))
}

type Options struct {
	// MaxDepth bounds how far below the root entries are visited.
	// Entries directly inside the root are at depth 1. Zero means unbounded.
	MaxDepth int
	// IncludeHidden visits dot entries
	IncludeHidden bool
	// IncludeBundles descends into bundle directories
	IncludeBundles bool
	// Skip holds doublestar patterns matched against the slash separated path relative to the root
	Skip []string
	// DirsOnly suppresses visits to non-directories
	DirsOnly bool
}

// ErrStop is returned by a VisitFunc to end the walk early
var ErrStop = errors.New("stop walk")

// VisitFunc is called for every entry below the root. Returning ErrStop ends the
// walk, fs.SkipDir on a directory prunes it, any other error is ignored.
type VisitFunc func(path string, info os.FileInfo) error

// Walk visits entries below root in lexical order per directory.
// It returns true if visit stopped the walk. Unreadable entries are skipped;
// only a missing root or a cancelled context produce an error.
func Walk(ctx context.Context, root string, opts Options, visit VisitFunc) (bool, error) {
	if _, err := os.Stat(root); err != nil {
		return false, err
	}

	// the walker lstats its root, so a symlinked root would never be descended
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false, err
	}

	walker := fs.Walk(realRoot)
	for walker.Step() {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		if walker.Path() == realRoot {
			continue
		}
		if err := walker.Err(); err != nil {
			slog.Debug("walk skip", "path", walker.Path(), "error", err)
			continue
		}

		info := walker.Stat()
		rel, err := filepath.Rel(realRoot, walker.Path())
		if err != nil {
			continue
		}
		path := filepath.Join(root, rel)
		rel = filepath.ToSlash(rel)
		depth := strings.Count(rel, "/") + 1

		if opts.MaxDepth > 0 && depth > opts.MaxDepth {
			if info.IsDir() {
				walker.SkipDir()
			}
			continue
		}

		if skip(info, rel, opts) {
			if info.IsDir() {
				walker.SkipDir()
			}
			continue
		}

		if opts.DirsOnly && !info.IsDir() {
			continue
		}

		switch err := visit(path, info); {
		case errors.Is(err, ErrStop):
			return true, nil
		case errors.Is(err, iofs.SkipDir):
			if info.IsDir() {
				walker.SkipDir()
			}
			continue
		}

		// never descend into bundles, but still let the caller see them
		if info.IsDir() && !opts.IncludeBundles && IsBundle(info.Name()) {
			walker.SkipDir()
		}
	}
	return false, ctx.Err()
}

func skip(info os.FileInfo, rel string, opts Options) bool {
	name := info.Name()
	if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, pattern := range opts.Skip {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// ValidatePatterns reports the first malformed pattern
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}

type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid skip pattern: " + e.Pattern
}
