// Package errors provides common domain error types for the VeriMeet service.
//
// This package defines sentinel errors for conditions that cross package
// boundaries, such as an unconfigured integration or an invalid session state.
// Using typed errors enables consistent error handling with errors.Is() checks.
//
// Usage:
//
//	import vmerrors "github.com/verimeet/verimeet/pkg/errors"
//
//	// Return a domain error
//	return nil, vmerrors.ErrNotConfigured
//
//	// Check for domain errors
//	if vmerrors.IsNotConfigured(err) {
//	    // skip the optional integration
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotConfigured indicates an optional integration has no credentials.
	ErrNotConfigured = errors.New("integration not configured")

	// ErrInvalidState indicates the operation is not valid for the current
	// session state, such as appending transcripts to a finalized meeting.
	ErrInvalidState = errors.New("invalid session state")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrMissingRecipients indicates an email action had no recipients.
	ErrMissingRecipients = errors.New("missing recipients")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrMalformedResponse indicates an external service returned a payload
	// that could not be parsed into the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// IsNotConfigured reports whether any error in err's chain is ErrNotConfigured.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsMissingRecipients reports whether any error in err's chain is ErrMissingRecipients.
func IsMissingRecipients(err error) bool {
	return errors.Is(err, ErrMissingRecipients)
}

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMalformedResponse reports whether any error in err's chain is ErrMalformedResponse.
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}
