// Package errors defines the typed failure kinds surfaced by the wallet
// session and token client, plus helpers for wrapping provider and contract
// failures while keeping the original message.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
)

// Exit codes used by the CLI.
const (
	ExitSuccess  = 0
	ExitGeneral  = 1
	ExitInput    = 2 // invalid address / amount
	ExitAuth     = 3 // wallet refused or has no account
	ExitProvider = 4 // provider missing or unreachable
	ExitChain    = 5 // contract read, network query or transfer failure
)

// Kind discriminates failures.
type Kind string

// Failure kinds.
const (
	KindGeneral                Kind = "GENERAL_ERROR"
	KindProviderUnavailable    Kind = "PROVIDER_UNAVAILABLE"
	KindAuthorizationDenied    Kind = "AUTHORIZATION_DENIED"
	KindNoAccountAvailable     Kind = "NO_ACCOUNT_AVAILABLE"
	KindAccountResolutionError Kind = "ACCOUNT_RESOLUTION_ERROR"
	KindContractReadError      Kind = "CONTRACT_READ_ERROR"
	KindNetworkQueryError      Kind = "NETWORK_QUERY_ERROR"
	KindUnsupportedNetwork     Kind = "UNSUPPORTED_NETWORK"
	KindInvalidAddress         Kind = "INVALID_ADDRESS"
	KindInvalidAmount          Kind = "INVALID_AMOUNT"
	KindTransferError          Kind = "TRANSFER_ERROR"
)

// Error is the structured error returned at the session and facade boundary.
type Error struct {
	Kind     Kind
	Op       string // operation that failed, e.g. "token.TotalSupply"
	Message  string
	Cause    error
	ExitCode int
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels, one per kind. Compare with errors.Is.
var (
	ErrGeneral = &Error{Kind: KindGeneral, Message: "an error occurred", ExitCode: ExitGeneral}

	ErrProviderUnavailable = &Error{
		Kind:     KindProviderUnavailable,
		Message:  "no wallet provider detected",
		ExitCode: ExitProvider,
	}
	ErrAuthorizationDenied = &Error{
		Kind:     KindAuthorizationDenied,
		Message:  "wallet authorization denied",
		ExitCode: ExitAuth,
	}
	ErrNoAccountAvailable = &Error{
		Kind:     KindNoAccountAvailable,
		Message:  "no accounts found",
		ExitCode: ExitAuth,
	}
	ErrAccountResolution = &Error{
		Kind:     KindAccountResolutionError,
		Message:  "could not resolve account",
		ExitCode: ExitChain,
	}
	ErrContractRead = &Error{
		Kind:     KindContractReadError,
		Message:  "contract read failed",
		ExitCode: ExitChain,
	}
	ErrNetworkQuery = &Error{
		Kind:     KindNetworkQueryError,
		Message:  "network query failed",
		ExitCode: ExitChain,
	}
	ErrUnsupportedNetwork = &Error{
		Kind:     KindUnsupportedNetwork,
		Message:  "network not supported",
		ExitCode: ExitChain,
	}
	ErrInvalidAddress = &Error{
		Kind:     KindInvalidAddress,
		Message:  "invalid address",
		ExitCode: ExitInput,
	}
	ErrInvalidAmount = &Error{
		Kind:     KindInvalidAmount,
		Message:  "invalid amount",
		ExitCode: ExitInput,
	}
	ErrTransfer = &Error{
		Kind:     KindTransferError,
		Message:  "transfer failed",
		ExitCode: ExitChain,
	}
)

// New returns an error of the sentinel's kind for op, with an optional cause.
func New(sentinel *Error, op string, cause error) *Error {
	return &Error{
		Kind:     sentinel.Kind,
		Op:       op,
		Message:  sentinel.Message,
		Cause:    cause,
		ExitCode: sentinel.ExitCode,
	}
}

// Newf is New with a formatted message replacing the sentinel's default.
func Newf(sentinel *Error, op, format string, args ...any) *Error {
	e := New(sentinel, op, nil)
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// Wrap re-expresses err as the sentinel's kind unless it already carries a
// kind, in which case it is returned unchanged.
func Wrap(sentinel *Error, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return New(sentinel, op, err)
}

// KindOf returns the kind carried by err, or KindGeneral.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneral
}

// Cause returns the innermost non-kind error message, which is what the
// provider or contract actually reported.
func Cause(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Cause != nil {
		return Cause(e.Cause)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// ExitCode returns the exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode
	}
	return ExitGeneral
}
