package ptp

import (
	"errors"
	"fmt"
)

var (
	ErrIncompleteData = errors.New("incomplete data")
	ErrMalformedField = errors.New("malformed field")

	errBodyMismatch     = errors.New("body does not match message type")
	errClockIdentityLen = errors.New("clock identity must be 8 bytes")
)

// IncompleteDataError reports that the input ended before Field could be
// read. Needed is the number of additional bytes required.
type IncompleteDataError struct {
	Field  string
	Needed int
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("incomplete data: %s needs %d more bytes", e.Field, e.Needed)
}

func (e *IncompleteDataError) Is(target error) bool { return target == ErrIncompleteData }

// MalformedFieldError reports that the raw bytes of Field could not be
// converted to the field's type. Every field of the fixed message layout
// accepts any bit pattern, so Decode never returns it; it comes from
// ClockIdentityFromBytes and NewMessage.
type MalformedFieldError struct {
	Field string
	Err   error
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed field %s: %v", e.Field, e.Err)
}

func (e *MalformedFieldError) Is(target error) bool { return target == ErrMalformedField }

func (e *MalformedFieldError) Unwrap() error { return e.Err }
