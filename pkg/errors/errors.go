// Package errors provides coded domain errors for the ledger engine.
//
// Business rejections (insufficient funds, duplicate votes, rate limits) are
// ordinary values the caller is expected to branch on; only CodeInternal marks
// an unexpected failure that should propagate up the stack unhandled.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for programmatic handling.
type Code string

const (
	// CodeInvalidInput marks malformed or out-of-range input. Safe to retry
	// after correction; the message lists every violated rule.
	CodeInvalidInput Code = "invalid_input"
	// CodeInsufficientFunds marks a balance-rule rejection, not a bug.
	CodeInsufficientFunds Code = "insufficient_funds"
	// CodeInsufficientStake marks an unstake exceeding the current stake.
	CodeInsufficientStake Code = "insufficient_stake"
	// CodeNotFound marks an unknown account or proposal.
	CodeNotFound Code = "not_found"
	// CodeAlreadyActed marks a duplicate action such as a second vote.
	CodeAlreadyActed Code = "already_acted"
	// CodeRateLimited marks an admission rejection with a retry-after hint.
	CodeRateLimited Code = "rate_limited"
	// CodeBanned marks a temporarily banned actor.
	CodeBanned Code = "banned"
	// CodeUnauthorizedCaller marks a call from outside the internal allow-list.
	CodeUnauthorizedCaller Code = "unauthorized_caller"
	// CodeConflict marks a lost race; the operation is safe to retry as-is.
	CodeConflict Code = "conflict"
	// CodeUnavailable marks a capability that is not implemented yet, such as
	// signature verification for an unregistered chain.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks unexpected failures (storage, encoding). Fatal.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It may wrap an underlying cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a static message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a code and message. Returns nil if
// err is nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal
// for uncoded errors and the empty code for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsFatal reports whether the error is an unexpected internal failure rather
// than a business rejection.
func IsFatal(err error) bool {
	return err != nil && CodeOf(err) == CodeInternal
}

// HTTPStatus maps a code to the status used by the JSON transport.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case CodeInsufficientFunds, CodeInsufficientStake:
		return http.StatusPaymentRequired
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyActed, CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeBanned, CodeUnauthorizedCaller:
		return http.StatusForbidden
	case CodeUnavailable:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
