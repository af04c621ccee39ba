package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx upstream responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx upstream responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents non-JSON or malformed response bodies.
	ErrorClassDecode ErrorClass = "decode"
)

// RetrievalError reports a failed page or resource retrieval. Page is
// zero for single-resource fetches.
type RetrievalError struct {
	Resource   string
	Page       int
	StatusCode int
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *RetrievalError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("retrieve %s page %d: %s error (status %d): %v",
			e.Resource, e.Page, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("retrieve %s: %s error (status %d): %v",
		e.Resource, e.Class, e.StatusCode, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// shouldRetry determines if an error class is worth retrying.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors are not transient
		return false
	case ErrorClassDecode:
		// A malformed body will not improve on a second read
		return false
	case ErrorClassServer:
		return true
	case ErrorClassNetwork:
		return true
	default:
		return false
	}
}
