package blockdb

import (
	"errors"
	"fmt"
)

// ErrInvalidKey is returned when enumerating settings yields a stored
// key that is not valid UTF-8. This indicates corruption and is
// surfaced, never skipped.
var ErrInvalidKey = errors.New("settings key is not valid UTF-8")

// EngineError is a failure of the underlying key-value engine, tagged
// with the column the failing operation addressed.
type EngineError struct {
	Column string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("column %s: %s", e.Column, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
