package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ProblemDetails represents RFC 7807 compliant error response.
// Command failures are logged in this shape.
type ProblemDetails struct {
	// Type is a URI reference that identifies the problem type
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Status is the HTTP status code
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence of the problem
	Detail string `json:"detail"`
	// Instance is a URI reference that identifies the specific occurrence of the problem
	Instance string `json:"instance,omitempty"`
	// Timestamp when the error occurred
	Timestamp time.Time `json:"timestamp"`
	// Errors contains field-specific errors
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents field-specific validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Standard error types with URIs
const (
	TypeNoData           = "https://mindset.local/errors/no-data"
	TypeInsufficientData = "https://mindset.local/errors/insufficient-data"
	TypeModelNotTrained  = "https://mindset.local/errors/model-not-trained"
	TypeArtifactNotFound = "https://mindset.local/errors/artifact-not-found"
	TypeValidationError  = "https://mindset.local/errors/validation-error"
	TypeInternalError    = "https://mindset.local/errors/internal-error"
)

// Standard error titles
const (
	TitleNoData           = "No Data"
	TitleInsufficientData = "Insufficient Data"
	TitleModelNotTrained  = "Model Not Trained"
	TitleArtifactNotFound = "Artifact Not Found"
	TitleValidationError  = "Validation Error"
	TitleInternalError    = "Internal Error"
)

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(problemType, title string, status int, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:      problemType,
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  instance,
		Timestamp: time.Now().UTC(),
	}
}

// AddValidationError adds a single validation error
func (p *ProblemDetails) AddValidationError(field, message, code string) *ProblemDetails {
	p.Errors = append(p.Errors, ValidationError{
		Field:   field,
		Message: message,
		Code:    code,
	})
	return p
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// ToProblemDetails converts Error to RFC 7807 ProblemDetails
func (e *Error) ToProblemDetails(instance string) *ProblemDetails {
	var problemType, title string
	var status int

	switch e.Kind {
	case KindNoData:
		problemType, title, status = TypeNoData, TitleNoData, http.StatusNotFound
	case KindInsufficientData:
		problemType, title, status = TypeInsufficientData, TitleInsufficientData, http.StatusUnprocessableEntity
	case KindModelNotTrained, KindNothingToSave:
		problemType, title, status = TypeModelNotTrained, TitleModelNotTrained, http.StatusConflict
	case KindArtifactNotFound:
		problemType, title, status = TypeArtifactNotFound, TitleArtifactNotFound, http.StatusServiceUnavailable
	case KindInvalidInput, KindMisaligned, KindNotFitted:
		problemType, title, status = TypeValidationError, TitleValidationError, http.StatusBadRequest
	default:
		problemType, title, status = TypeInternalError, TitleInternalError, http.StatusInternalServerError
	}

	detail := e.Message
	if detail == "" {
		detail = e.Error()
	}
	pd := NewProblemDetails(problemType, title, status, detail, instance)
	for _, field := range e.Fields {
		pd.AddValidationError(field.Field, field.Message, field.Kind)
	}

	return pd
}

// ProblemFor converts any error into ProblemDetails. Errors without a kind
// become internal errors.
func ProblemFor(err error, instance string) *ProblemDetails {
	var pd *ProblemDetails
	if As(err, &pd) {
		return pd
	}
	var e *Error
	if As(err, &e) {
		out := e.ToProblemDetails(instance)
		out.Detail = err.Error()
		return out
	}
	return NewProblemDetails(TypeInternalError, TitleInternalError, http.StatusInternalServerError, err.Error(), instance)
}
