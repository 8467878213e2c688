package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidDateRange indicates an allocation whose start date falls after its
// end date.
var ErrInvalidDateRange = errors.New("allocation start date is after end date")

var errMissingDate = errors.New("missing date")

// DateParseError reports a date value that could not be interpreted. Callers
// must treat the owning allocation as contributing zero hours and surface the
// failure rather than drop it silently.
type DateParseError struct {
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("parse date %q: %v", e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}
