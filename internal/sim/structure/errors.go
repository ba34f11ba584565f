package structure

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownFormat = errors.New("unknown structure format")
	ErrNotFound      = errors.New("structure not found")
	ErrTooLarge      = errors.New("structure too large")
)

// LoadError reports a structure that could not be located or parsed.
type LoadError struct {
	Handle string
	Format Format
	Err    error
}

func (e *LoadError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("load structure %s: %v", e.Handle, e.Err)
	}
	return fmt.Sprintf("load structure %s (%s): %v", e.Handle, e.Format, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
