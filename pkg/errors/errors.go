package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the different classes of failure a harvest can hit
type ErrorType string

const (
	// ErrorTypeTransient covers UI and navigation failures: element not found,
	// click intercepted, page transition timeout.
	ErrorTypeTransient   ErrorType = "transient"
	ErrorTypeFetch       ErrorType = "fetch"
	ErrorTypeSession     ErrorType = "session"
	ErrorTypePersistence ErrorType = "persistence"
	ErrorTypePublish     ErrorType = "publish"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries a failure class alongside the operation that produced it
type Error struct {
	Type ErrorType
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Type, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Type, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a type and operation name
func New(errorType ErrorType, op string, err error) *Error {
	return &Error{Type: errorType, Op: op, Err: err}
}

// Transient wraps a recoverable UI or navigation failure
func Transient(op string, err error) *Error {
	return New(ErrorTypeTransient, op, err)
}

// Fetch wraps a single-entry fetch failure
func Fetch(op string, err error) *Error {
	return New(ErrorTypeFetch, op, err)
}

// Session wraps a failure that makes the current session unusable
func Session(op string, err error) *Error {
	return New(ErrorTypeSession, op, err)
}

// Persistence wraps a ledger or archive write failure
func Persistence(op string, err error) *Error {
	return New(ErrorTypePersistence, op, err)
}

// Publish wraps a delivery failure
func Publish(op string, err error) *Error {
	return New(ErrorTypePublish, op, err)
}

// TypeOf returns the ErrorType of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsFatal reports whether err must terminate the whole run.
// Only persistence failures qualify: continuing would fetch items whose
// progress can no longer be recorded.
func IsFatal(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypePersistence
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransient, ErrorTypeFetch, ErrorTypePublish:
		return true
	case ErrorTypeSession, ErrorTypePersistence:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code from a publish
// destination indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	case 400, 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
