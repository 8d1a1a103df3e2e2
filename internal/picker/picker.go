// Package picker asks the user for a folder.
package picker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

// Picker prompts for a directory. ok is false when the user cancels.
type Picker interface {
	Prompt(ctx context.Context, title string) (path string, ok bool)
}

// None never returns a folder; used when nobody is there to answer
type None struct{}

func (None) Prompt(context.Context, string) (string, bool) {
	return "", false
}

// Fixed always answers with the same folder
type Fixed string

func (f Fixed) Prompt(context.Context, string) (string, bool) {
	if f == "" || !utils.DirExists(string(f)) {
		return "", false
	}
	return string(f), true
}

// Terminal prompts on a terminal
type Terminal struct {
	in         io.Reader
	out        io.Writer
	accessible bool
	initial    string
}

type Option func(*Terminal)

// WithIO overrides stdin/stdout
func WithIO(in io.Reader, out io.Writer) Option {
	return func(t *Terminal) {
		t.in = in
		t.out = out
	}
}

// WithAccessible switches to plain line based prompts, for screen readers and pipes
func WithAccessible(accessible bool) Option {
	return func(t *Terminal) {
		t.accessible = accessible
	}
}

// WithInitial pre-fills the prompt
func WithInitial(path string) Option {
	return func(t *Terminal) {
		t.initial = path
	}
}

func NewTerminal(opts ...Option) *Terminal {
	t := &Terminal{
		in:         os.Stdin,
		out:        os.Stdout,
		accessible: !isatty.IsTerminal(os.Stdin.Fd()),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interactive picks a terminal picker when stdin is a TTY, None otherwise
func Interactive() Picker {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return None{}
	}
	return NewTerminal()
}

func (t *Terminal) Prompt(ctx context.Context, title string) (string, bool) {
	path := t.initial
	input := huh.NewInput().
		Title(title).
		Description("Path to the folder, ~ is expanded").
		Placeholder("~/Projects/example").
		Value(&path).
		Validate(validateDir)

	form := huh.NewForm(huh.NewGroup(input)).
		WithInput(t.in).
		WithOutput(t.out).
		WithAccessible(t.accessible)

	if err := form.RunWithContext(ctx); err != nil {
		if !errors.Is(err, huh.ErrUserAborted) && !errors.Is(err, context.Canceled) {
			slog.Warn("folder prompt", "error", err)
		}
		return "", false
	}

	resolved, err := utils.ResolvePath(strings.TrimSpace(path))
	if err != nil || !utils.DirExists(resolved) {
		return "", false
	}
	return resolved, true
}

func validateDir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("a folder is required")
	}
	resolved, err := utils.ResolvePath(s)
	if err != nil {
		return err
	}
	if !utils.DirExists(resolved) {
		return fmt.Errorf("%s is not a folder", resolved)
	}
	return nil
}
