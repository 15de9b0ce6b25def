package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies billing failures so the transport layer can map them
// to responses without inspecting messages
type ErrorKind int

const (
	// KindPersistence covers any database failure; the run was rolled back
	KindPersistence ErrorKind = iota
	// KindAuth means the caller could not be authenticated
	KindAuth
	// KindValidation means the request was malformed
	KindValidation
	// KindNotFound means the term has no fee configuration
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "persistence"
	}
}

// BillingError is an error with a kind from the billing taxonomy
type BillingError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface
func (e *BillingError) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *BillingError) Unwrap() error {
	return e.Err
}

// NewAuthError creates an error for a missing or invalid API key
func NewAuthError(message string) *BillingError {
	return &BillingError{Kind: KindAuth, Message: message}
}

// NewValidationError creates an error for a malformed request
func NewValidationError(message string) *BillingError {
	return &BillingError{Kind: KindValidation, Message: message}
}

// NewNotFoundError creates an error for a missing resource
func NewNotFoundError(message string) *BillingError {
	return &BillingError{Kind: KindNotFound, Message: message}
}

// NewPersistenceError wraps a database failure
func NewPersistenceError(err error, message string) *BillingError {
	return &BillingError{Kind: KindPersistence, Message: message, Err: err}
}

// KindOf returns the kind of err. Errors outside the taxonomy are persistence failures.
func KindOf(err error) ErrorKind {
	var billingErr *BillingError
	if errors.As(err, &billingErr) {
		return billingErr.Kind
	}
	return KindPersistence
}
