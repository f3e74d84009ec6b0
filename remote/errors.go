package remote

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrRequired      = errors.New("required column is empty")
	ErrInvalidValue  = errors.New("invalid column value")
	ErrUnfiltered    = errors.New("update and delete need at least one filter")
)

// Error is a failed remote call. It covers transport failures, backend
// rejections and schema violations alike.
type Error struct {
	Op    Op
	Table string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
