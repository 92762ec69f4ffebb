package explorer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidResponse marks a structurally unusable payload. It is never
	// retried against the same provider.
	ErrInvalidResponse = errors.New("invalid response")
	ErrNotSupported    = errors.New("operation not supported")
	ErrNoProviders     = errors.New("no providers configured")
)

// APIError is a transport failure or a failure reported by the provider itself.
type APIError struct {
	Provider   string
	Operation  Operation
	StatusCode int
	Err        error
}

func NewAPIError(provider string, op Operation, statusCode int, err error) *APIError {
	return &APIError{Provider: provider, Operation: op, StatusCode: statusCode, Err: err}
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s][%s] status %d: %v", e.Provider, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("[%s][%s] %v", e.Provider, e.Operation, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Cause() error { return e.Err }

// Retryable reports whether the same provider may be asked again.
func (e *APIError) Retryable() bool {
	if errors.Is(e.Err, ErrInvalidResponse) {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// InvalidResponse wraps ErrInvalidResponse with provider context.
func InvalidResponse(provider string, op Operation, reason string) error {
	return errors.Wrapf(ErrInvalidResponse, "[%s][%s] %s", provider, op, reason)
}

// AllProvidersFailedError is returned when every candidate of an operation
// failed. Errors keeps one entry per attempted provider, in order.
type AllProvidersFailedError struct {
	Chain     string
	Operation Operation
	Errors    []error
}

func (e *AllProvidersFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("all providers failed for %s %s: %s", e.Chain, e.Operation, strings.Join(msgs, "; "))
}

func IsAllProvidersFailed(err error) bool {
	var target *AllProvidersFailedError
	return errors.As(err, &target)
}
