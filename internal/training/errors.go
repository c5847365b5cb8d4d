package training

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidNumeric   = errors.New("invalid numeric value")
	ErrOutOfRange       = errors.New("value out of range")
	ErrMissingField     = errors.New("missing required field")
	ErrUnknownSport     = errors.New("unknown sport")
	ErrUnknownCategory  = errors.New("unknown workout category")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrNoWorkOutput     = errors.New("no work output for session")
	ErrInvalidWindow    = errors.New("invalid time window")
	ErrStoreUnavailable = errors.New("workout store unavailable")
	ErrVersionConflict  = errors.New("workout log changed since it was read")
)

// ValidationError is returned when a single workout row cannot be turned into
// a WorkoutRecord. It always wraps one of the sentinel errors above.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DataQualityError marks a stored row dropped during an analysis pass.
type DataQualityError struct {
	Seq int
	Err error
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("row %d dropped: %s", e.Seq, e.Err)
}

func (e *DataQualityError) Unwrap() error {
	return e.Err
}

// SkippedErr combines the errors of all skipped rows, nil if none were skipped.
func SkippedErr(skipped []SkippedRow) error {
	var err error
	for _, s := range skipped {
		err = multierr.Append(err, s.Err)
	}
	return err
}
