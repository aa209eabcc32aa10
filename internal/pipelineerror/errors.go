// Package pipelineerror defines the error taxonomy shared by the ingestion pipeline.
package pipelineerror

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedExtraction is returned when backend output cannot be decoded.
	ErrMalformedExtraction = errors.New("malformed extraction output")
	// ErrNoBackends is returned when no extraction backend is configured.
	ErrNoBackends = errors.New("no extraction backends configured")
	// ErrUnsupportedInput is returned for payloads that carry no usable content.
	ErrUnsupportedInput = errors.New("unsupported input")
)

// ProviderUnavailableError represents a backend that could not be reached or refused the call.
type ProviderUnavailableError struct {
	Backend string
	Op      string
	Err     error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("backend %s unavailable during %s: %v", e.Backend, e.Op, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// TranscriptionFailedError is a failed or empty speech-to-text conversion.
type TranscriptionFailedError struct {
	Backend string
	Reason  string
	Err     error
}

func (e *TranscriptionFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription failed on %s: %s: %v", e.Backend, e.Reason, e.Err)
	}
	return fmt.Sprintf("transcription failed on %s: %s", e.Backend, e.Reason)
}

func (e *TranscriptionFailedError) Unwrap() error {
	return e.Err
}

// ValidationError represents a candidate rejected before persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CategoryProvisioningError signals a tenant without any fallback category.
type CategoryProvisioningError struct {
	TenantID string
}

func (e *CategoryProvisioningError) Error() string {
	return fmt.Sprintf("tenant %s has no fallback category", e.TenantID)
}

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotOwnerError is returned when an actor touches another tenant's category.
type NotOwnerError struct {
	TenantID   string
	CategoryID string
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("category %s does not belong to tenant %s", e.CategoryID, e.TenantID)
}

// NotFoundError is returned when a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsProviderUnavailable reports whether err is, or wraps, a ProviderUnavailableError.
func IsProviderUnavailable(err error) bool {
	var target *ProviderUnavailableError
	return errors.As(err, &target)
}

// IsTranscriptionFailed reports whether err is, or wraps, a TranscriptionFailedError.
func IsTranscriptionFailed(err error) bool {
	var target *TranscriptionFailedError
	return errors.As(err, &target)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsPersistence reports whether err is, or wraps, a PersistenceError.
func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

// IsNotOwner reports whether err is, or wraps, a NotOwnerError.
func IsNotOwner(err error) bool {
	var target *NotOwnerError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsTyped reports whether err already carries one of the pipeline's typed errors.
func IsTyped(err error) bool {
	return IsProviderUnavailable(err) || IsTranscriptionFailed(err) ||
		IsValidation(err) || IsPersistence(err) ||
		errors.Is(err, ErrMalformedExtraction) || errors.Is(err, ErrUnsupportedInput)
}
