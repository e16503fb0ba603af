// Package errors provides the standardized error taxonomy of the wizard.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeIO               ErrorCode = "IO_ERROR"
	ErrCodeDocument         ErrorCode = "DOCUMENT_ERROR"
	ErrCodeMail             ErrorCode = "MAIL_ERROR"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns the error with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewValidationError creates a non-retryable error for a rejected submission.
func NewValidationError(details string) *StandardError {
	e := newError(ErrCodeValidationFailed, "Submission validation failed", nil)
	e.Details = details
	return e
}

// NewIOError wraps a template, temp-file or archive read/write failure.
func NewIOError(op string, err error) *StandardError {
	return newError(ErrCodeIO, fmt.Sprintf("I/O failure during %s", op), err)
}

// NewDocumentError wraps a malformed template or merge failure.
func NewDocumentError(document string, err error) *StandardError {
	return newError(ErrCodeDocument, "Document generation failed", err).
		WithMetadata("document", document)
}

// NewMailError wraps a mail transport failure. Mail is never retried.
func NewMailError(provider string, err error) *StandardError {
	return newError(ErrCodeMail, fmt.Sprintf("Mail delivery via %s failed", provider), err).
		WithMetadata("provider", provider)
}

// NewNotFoundError reports an unknown or expired resource.
func NewNotFoundError(resource string) *StandardError {
	e := newError(ErrCodeNotFound, "Resource not found", nil)
	e.Details = resource
	return e
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err)
}

// CodeOf returns the code of err, INTERNAL_ERROR for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Normalize(err).Code
}

// HTTPStatus maps an error code onto the response status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeMail:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage is the text shown on the failure page. Details stay in the log.
func UserMessage(code ErrorCode) string {
	switch code {
	case ErrCodeValidationFailed:
		return "Die Angaben sind unvollständig. Bitte starten Sie den Assistenten erneut."
	case ErrCodeNotFound:
		return "Die angeforderte Datei existiert nicht oder ist abgelaufen."
	case ErrCodeMail:
		return "Die Dokumente wurden erstellt, der Versand per E-Mail ist jedoch fehlgeschlagen."
	case ErrCodeDocument:
		return "Die Dokumente konnten nicht erstellt werden."
	default:
		return "Es ist ein interner Fehler aufgetreten."
	}
}
