package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/cfrstat/internal/document"
	"github.com/roach88/cfrstat/internal/traverse"
)

// InputError is an error in what the caller asked for, as opposed to a
// failure while doing it. Input errors are reported synchronously and never
// defaulted away.
type InputError struct {
	// Code identifies the error category.
	Code InputErrorCode

	// Message is a human-readable description.
	Message string

	// Value is the offending input, when there is a single one.
	Value string

	err error
}

// InputErrorCode categorizes input errors.
type InputErrorCode string

const (
	// ErrCodeUnknownMetric indicates a metric name or id not in the catalog.
	ErrCodeUnknownMetric InputErrorCode = "UNKNOWN_METRIC"

	// ErrCodeUnknownAgency indicates agency short names with no slug.
	ErrCodeUnknownAgency InputErrorCode = "UNKNOWN_AGENCY"

	// ErrCodeUnknownLevel indicates a hierarchy level that does not exist.
	ErrCodeUnknownLevel InputErrorCode = "UNKNOWN_LEVEL"

	// ErrCodeMalformedDocument indicates a document that cannot be parsed or
	// whose hierarchy cannot be reconstructed.
	ErrCodeMalformedDocument InputErrorCode = "MALFORMED_DOCUMENT"

	// ErrCodeInvalidRange indicates an end date before the start date.
	ErrCodeInvalidRange InputErrorCode = "INVALID_RANGE"

	// ErrCodeTitleMismatch indicates a document whose TITLE node disagrees
	// with the title it was ingested as.
	ErrCodeTitleMismatch InputErrorCode = "TITLE_MISMATCH"
)

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *InputError) Unwrap() error {
	return e.err
}

// IsInputError reports whether err is, or wraps, an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// InputErrorCodeOf returns the code of the *InputError in err's chain.
func InputErrorCodeOf(err error) (InputErrorCode, bool) {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Code, true
	}
	return "", false
}

func newInputError(code InputErrorCode, value, format string, args ...any) *InputError {
	return &InputError{Code: code, Message: fmt.Sprintf(format, args...), Value: value}
}

// malformed converts document and traversal failures to MALFORMED_DOCUMENT.
// Other errors are returned unchanged.
func malformed(err error) error {
	var pe *document.ParseError
	var se *traverse.StructureError
	switch {
	case errors.As(err, &pe):
		return &InputError{Code: ErrCodeMalformedDocument, Message: pe.Error(), err: err}
	case errors.As(err, &se):
		return &InputError{Code: ErrCodeMalformedDocument, Message: se.Error(), err: err}
	default:
		return err
	}
}
