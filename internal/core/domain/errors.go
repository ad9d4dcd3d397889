package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Position synthesis is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Indexing and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Backend Errors.

	// ErrTransient indicates a backend failure that may succeed on retry.
	ErrTransient = errors.New("transient backend error")

	// ErrRateLimited indicates the backend rejected the call for exceeding its rate limit.
	ErrRateLimited = errors.New("rate limited")

	// Pipeline Errors.

	// ErrMalformedResponse indicates generated output did not match the expected structure.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrMissingCitation indicates generated text lacks a page citation
	// from the supplied chunks.
	ErrMissingCitation = errors.New("missing page citation")

	// ErrNoEmbeddings indicates the search scope has never been indexed.
	ErrNoEmbeddings = errors.New("no embeddings for scope")

	// ErrExtractionFailed indicates a PDF could not be read.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrOCRUnavailable indicates OCR fallback was needed but its tools are missing.
	ErrOCRUnavailable = errors.New("OCR unavailable")

	// Processing Status Errors.

	// ErrAlreadyClaimed indicates the pair is already started by the same run.
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrAlreadyCompleted indicates the pair is completed and not eligible.
	ErrAlreadyCompleted = errors.New("already completed")

	// ErrInvalidTransition indicates a processing state change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// BackendError is a failure reported by a remote AI backend.
// It matches ErrTransient through errors.Is when the call may be retried,
// and ErrRateLimited when the backend answered 429.
type BackendError struct {
	// Provider names the backend (openai, anthropic, ollama, gemini).
	Provider string

	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	// Message is the backend's error text.
	Message string

	// Transient marks failures worth retrying.
	Transient bool

	// Err is the underlying transport error, if any.
	Err error
}

// NewBackendError classifies an HTTP error response.
func NewBackendError(provider string, statusCode int, message string) *BackendError {
	return &BackendError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Transient:  IsTransientStatus(statusCode),
	}
}

// NewNetworkError wraps a transport failure. Network failures are transient
// unless the caller's context ended.
func NewNetworkError(provider string, err error) *BackendError {
	transient := !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	return &BackendError{
		Provider:  provider,
		Message:   err.Error(),
		Transient: transient,
		Err:       err,
	}
}

// Error implements error.
func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying transport error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is reports whether the error belongs to a backend error class.
func (e *BackendError) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.Transient
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// IsTransientStatus reports whether an HTTP status is worth retrying.
func IsTransientStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return statusCode >= http.StatusInternalServerError
}

// IsTransient reports whether err, or any error it wraps, may succeed on retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
