package placeindex

import (
	"errors"
	"fmt"
)

// IndexUnavailableError reports a failed index round-trip. It is distinct
// from a successful query with zero hits.
type IndexUnavailableError struct {
	Op  string
	Err error
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("placeindex: %s: index unavailable: %v", e.Op, e.Err)
}

func (e *IndexUnavailableError) Unwrap() error {
	return e.Err
}

// Unavailable wraps a backend error, leaving an existing
// IndexUnavailableError untouched.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var ue *IndexUnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &IndexUnavailableError{Op: op, Err: err}
}

// IsUnavailable reports whether err carries an IndexUnavailableError.
func IsUnavailable(err error) bool {
	var ue *IndexUnavailableError
	return errors.As(err, &ue)
}
