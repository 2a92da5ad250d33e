package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a verification or settlement failure. Kinds are
// disjoint so callers can map each one to specific guidance; the pipeline
// raises exactly one per failed run.
type ErrorKind string

const (
	ErrTransactionNotFound ErrorKind = "transaction_not_found"
	ErrTransactionFailed   ErrorKind = "transaction_failed"
	ErrNoMatchingTransfer  ErrorKind = "no_matching_transfer"
	ErrWrongRecipient      ErrorKind = "wrong_recipient"
	ErrInsufficientAmount  ErrorKind = "insufficient_amount"
	ErrInvalidMemo         ErrorKind = "invalid_memo"
	ErrMemoExpired         ErrorKind = "memo_expired"
	ErrNotConfirmed        ErrorKind = "not_confirmed"
	ErrStatusUnknown       ErrorKind = "status_unknown"

	// Split deployment verification.
	ErrRecipientMismatch  ErrorKind = "recipient_mismatch"
	ErrAllocationMismatch ErrorKind = "allocation_mismatch"

	// Boundary / configuration.
	ErrInvalidRequest     ErrorKind = "invalid_request"
	ErrUnsupportedChain   ErrorKind = "unsupported_chain"
	ErrSettlementFailed   ErrorKind = "settlement_failed"
	ErrSplitNotDeployed   ErrorKind = "split_not_deployed"
)

// PaymentError is the typed failure returned by the engine. Message is safe
// to surface to callers; Err carries the underlying cause, if any.
type PaymentError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// Errf builds a PaymentError with a formatted message.
func Errf(kind ErrorKind, format string, args ...any) *PaymentError {
	return &PaymentError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a PaymentError around an underlying cause.
func Wrap(kind ErrorKind, err error, message string) *PaymentError {
	return &PaymentError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the ErrorKind from err, or "" if err is not a
// PaymentError.
func KindOf(err error) ErrorKind {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
