package extract

import (
	"errors"
	"fmt"
)

// SkipKind classifies a recoverable per-file or per-record failure.
// The caller logs the skip and continues with the remaining inputs.
type SkipKind string

const (
	SkipFileFormat        SkipKind = "file_format"
	SkipIdentification    SkipKind = "identification"
	SkipEmptyFloor        SkipKind = "empty_floor"
	SkipInvalidIdentifier SkipKind = "invalid_identifier"
)

// SkipError is a recoverable skip condition. It is deliberately
// separate from fatal errors: a SkipError aborts only the unit being
// processed.
type SkipError struct {
	Kind   SkipKind
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Skipf builds a SkipError.
func Skipf(kind SkipKind, format string, args ...any) *SkipError {
	return &SkipError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// AsSkip unwraps a SkipError from err.
func AsSkip(err error) (*SkipError, bool) {
	var se *SkipError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
