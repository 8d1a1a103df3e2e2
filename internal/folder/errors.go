package folder

import (
	"errors"
	"fmt"
)

var (
	ErrNotDirectory = errors.New("not a directory")
	ErrEmptyName    = errors.New("folder name cannot be empty")
)

// OpError describes a failed user-facing operation on a tracked folder.
type OpError struct {
	Op  string
	ID  string
	Err error
}

func (e *OpError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// WrapOp attaches operation context, or returns nil when err is nil
func WrapOp(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, ID: id, Err: err}
}
