package loader

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file has no header row")
	ErrMissingColumn     = errors.New("required column not found")
	ErrInvalidValue      = errors.New("invalid cell value")
)

// ColumnError reports a required column absent from a file header.
type ColumnError struct {
	File   string
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: required column %q not found", e.File, e.Column)
}

func (e *ColumnError) Unwrap() error { return ErrMissingColumn }

// ValueError reports a cell that could not be parsed. Row is 1-based and
// counts the header.
type ValueError struct {
	File   string
	Row    int
	Column string
	Value  string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: row %d: invalid %s value %q", e.File, e.Row, e.Column, e.Value)
}

func (e *ValueError) Unwrap() error { return ErrInvalidValue }
