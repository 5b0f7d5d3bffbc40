// Package errs provides the error types and status mapping for the web API.
package errs

import (
	"errors"
	"net/http"

	"github.com/learnblock/learnblock/business/core/state"
	"github.com/learnblock/learnblock/business/web/auth"
	"github.com/learnblock/learnblock/foundation/contract"
	"github.com/learnblock/learnblock/foundation/siwe"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context. Its message is safe to show
// to the client.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap returns the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// FromCore converts an error reported by the core or the sign in flow into
// a trusted error with the matching status. Anything not recognized is a
// failed transaction and reported as a bad request.
func FromCore(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, state.ErrNotConnected), errors.Is(err, state.ErrSignerMismatch):
		return NewTrusted(err, http.StatusConflict)

	case errors.Is(err, state.ErrNotTrustee):
		return NewTrusted(err, http.StatusForbidden)

	case errors.Is(err, contract.ErrNotFound):
		return NewTrusted(err, http.StatusNotFound)

	case errors.Is(err, auth.ErrUnknownNonce),
		errors.Is(err, auth.ErrDomainMismatch),
		errors.Is(err, auth.ErrChainMismatch),
		errors.Is(err, auth.ErrInvalidSession),
		errors.Is(err, siwe.ErrInvalidSignature),
		errors.Is(err, siwe.ErrExpired),
		errors.Is(err, siwe.ErrNotYetValid):
		return NewTrusted(err, http.StatusUnauthorized)

	case errors.Is(err, siwe.ErrMalformed):
		return NewTrusted(err, http.StatusBadRequest)
	}

	return NewTrusted(err, http.StatusBadRequest)
}
