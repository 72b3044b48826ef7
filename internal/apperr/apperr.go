package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary. Handlers map kinds to
// status codes with Respond instead of matching on error strings.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInsufficientFunds
	KindInvalidTransaction
	KindInvalidTransactionState
	KindValidation
	KindUpstream
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func InsufficientFunds(message string) *Error {
	return New(KindInsufficientFunds, message)
}

func InvalidTransaction(message string) *Error {
	return New(KindInvalidTransaction, message)
}

func InvalidTransactionState(message string) *Error {
	return New(KindInvalidTransactionState, message)
}

func Internal(err error) *Error {
	return Wrap(KindInternal, "internal server error", err)
}

// KindOf returns the Kind carried by err, or KindInternal for plain errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
