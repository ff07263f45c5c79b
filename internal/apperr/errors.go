// Package apperr defines the error taxonomy shared by all SnapNotes layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrBusy           = errors.New("a generation request is already in progress")
	ErrNotImplemented = errors.New("not implemented")
)

// ValidationError reports bad user input: file type or size, empty text, unknown format.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidation creates a ValidationError for a single field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// APIError is a failure of the generative-AI collaborator.
// Status is the HTTP status returned by the provider, or 0 when the endpoint
// was unreachable.
type APIError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s api: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s api: status %d: %s", e.Provider, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// ExtractionKind distinguishes document-level PDF extraction failures.
type ExtractionKind string

const (
	ExtractionNotPDF            ExtractionKind = "not_pdf"
	ExtractionPasswordProtected ExtractionKind = "password_protected"
	ExtractionNoText            ExtractionKind = "no_text"
	ExtractionCorrupt           ExtractionKind = "corrupt"
)

// ExtractionError is a document-level failure of the PDF collaborator.
type ExtractionError struct {
	Kind ExtractionKind
	Err  error
}

func (e *ExtractionError) Error() string {
	switch e.Kind {
	case ExtractionNotPDF:
		return "invalid PDF file, please ensure the file is not corrupted"
	case ExtractionPasswordProtected:
		return "this PDF is password-protected, please use an unprotected PDF"
	case ExtractionNoText:
		return "no text could be extracted from this PDF, it may be image-based"
	default:
		return "failed to extract text from PDF, the file may be corrupted"
	}
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StorageError is a persistence failure: quota, I/O, or corrupted data on read.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
