package apperrors

import (
	"errors"
	"fmt"
)

// Grading errors
var (
	ErrOfferingNotFound  = errors.New("course offering not found")
	ErrPublishInProgress = errors.New("a publish of this offering is already in progress")
)

// NewOfferingNotFoundError creates a not-found error naming the offering
func NewOfferingNotFoundError(offeringID int64) error {
	return NewCustomError(ErrOfferingNotFound, fmt.Sprintf("course offering %d not found", offeringID)).
		WithDetails(map[string]interface{}{"offeringId": offeringID})
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}
