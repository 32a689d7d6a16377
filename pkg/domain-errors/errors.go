package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for callers and transport layers. Codes are
// stable API: transports map them to status codes, tests assert on them.
type Code string

const (
	// CodeValidation covers rejected input: empty or oversized names,
	// non-positive prices, bids and durations.
	CodeValidation Code = "validation"
	// CodeBadRequest covers malformed requests at the transport boundary.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound covers unknown collections, items, listings and auctions.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized covers callers that are not the owner, not the
	// auction creator, not the administrator, or not on the transfer
	// allow-list.
	CodeUnauthorized Code = "unauthorized"
	// CodeConflict covers duplicate names and tokens that are already
	// listed or auctioned.
	CodeConflict Code = "conflict"
	// CodeExhausted covers identifier allocation running out of retries.
	CodeExhausted Code = "exhausted"
	// CodePayment covers insufficient payment, bids at or below the current
	// highest bid, settlement below reserve, and failed fund transfers.
	CodePayment Code = "payment"
	// CodeAuctionExpired covers bids arriving after an auction with no
	// standing bid has expired.
	CodeAuctionExpired Code = "auction_expired"
	// CodeInvariantViolation covers illegal state transitions caught by
	// model-level guards.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal covers unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a stable code and a human-readable message.
// Wrapped causes are preserved for errors.Is/As chains.
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

func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost domain error code, or CodeInternal when the
// error carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
