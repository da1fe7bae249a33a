package errors

import (
	"errors"
	"fmt"
)

var (
	Is = errors.Is
	As = errors.As
)

// Error kinds raised by the pipeline. Every failure surfaced to a caller is
// one of these or wraps one of them.
const (
	KindNoData           = "NoData"
	KindInsufficientData = "InsufficientData"
	KindModelNotTrained  = "ModelNotTrained"
	KindNotFitted        = "NotFitted"
	KindArtifactNotFound = "ArtifactNotFound"
	KindNothingToSave    = "NothingToSave"
	KindMisaligned       = "Misaligned"
	KindInvalidInput     = "InvalidInput"
)

var (
	NoData           = NewWithKind(KindNoData)
	InsufficientData = NewWithKind(KindInsufficientData)
	ModelNotTrained  = NewWithKind(KindModelNotTrained)
	NotFitted        = NewWithKind(KindNotFitted)
	ArtifactNotFound = NewWithKind(KindArtifactNotFound)
	NothingToSave    = NewWithKind(KindNothingToSave)
	Misaligned       = NewWithKind(KindMisaligned)
	InvalidInput     = NewWithKind(KindInvalidInput)
)

// FieldError pins a failure to a single named field, e.g. a column.
type FieldError struct {
	Kind    string `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"message,omitempty"`
}

func (f *FieldError) Error() string {
	return fmt.Sprintf("%s (%s): %s", f.Field, f.Kind, f.Message)
}

func NewFieldError(kind, field, reason string) FieldError {
	return FieldError{Kind: kind, Field: field, Message: reason}
}

// Error is a error type for passing more information
type Error struct {
	// Kind is the returned error type
	Kind string `json:"kind"`
	// Message is the human readable string that indicate the error
	Message string `json:"message"`
	// Fields used when the failure is tied to specific columns or settings.
	Fields []FieldError `json:"fields,omitempty"`

	cause error
}

var _ error = (*Error)(nil)

func NewWithKind(kind string) *Error {
	return &Error{Kind: kind}
}

// Error implements error
func (e *Error) Error() string {
	str := fmt.Sprintf("[%s]", e.Kind)
	if e.Message != "" {
		str += " " + e.Message
	}
	if e.cause != nil {
		str += fmt.Sprintf(" (%s)", e.cause)
	}
	return str
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Wrap returns a copy of the error with the given cause attached
func (e *Error) Wrap(cause error) *Error {
	err := *e
	err.cause = cause
	return &err
}

// Explain makes a copy of the error with given message
func (e *Error) Explain(message string, args ...any) *Error {
	err := *e
	err.Message = fmt.Sprintf(message, args...)
	return &err
}

// WithField returns a copy of error with the field appended.
func (e *Error) WithField(kind, field, message string) *Error {
	newError := *e
	newError.Fields = append(append([]FieldError(nil), e.Fields...), NewFieldError(kind, field, message))
	return &newError
}

// Is implements the needed interface for errors.Is
// Two *Error values match when their kinds are equal.
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if other, ok := target.(*Error); ok && other.Kind == e.Kind {
		return true
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) string {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return ""
}
