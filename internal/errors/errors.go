package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess       Code = 0
	CodeInternal      Code = 1
	CodeUsage         Code = 2
	CodeAuth          Code = 10
	CodeRateLimited   Code = 11
	CodeUnavailable   Code = 12
	CodeUnsupported   Code = 13
	CodeStale         Code = 14
	CodePartialStrict Code = 15
	CodeBlocked       Code = 16

	// Key decoding.
	CodeInvalidKeyBytes       Code = 20
	CodeInvalidKeyArray       Code = 21
	CodeUnrecognizedKeyFormat Code = 22
	CodeKeyFileNotFound       Code = 23
	CodeSigner                Code = 24

	// Balance reads.
	CodeInsufficientBalance Code = 30
	CodeRPCUnavailable      Code = 31

	// Wrap / unwrap.
	CodeNoWrappedAccount         Code = 32
	CodeZeroBalance              Code = 33
	CodePartialUnwrapUnsupported Code = 34

	// Swap and submission.
	CodeQuoteMismatch       Code = 40
	CodeFeePayerMismatch    Code = 41
	CodeSubmissionFailed    Code = 42
	CodeConfirmationTimeout Code = 43
	CodeInterrupted         Code = 44
	CodeTransactionFailed   Code = 45
)

// Family groups codes the way callers branch on them.
type Family string

const (
	FamilyGeneric Family = "generic"
	FamilyDecode  Family = "decode"
	FamilyBalance Family = "balance"
	FamilyWrap    Family = "wrap"
	FamilySwap    Family = "swap"
)

func (c Code) Family() Family {
	switch {
	case c >= 20 && c < 30:
		return FamilyDecode
	case c == CodeInsufficientBalance || c == CodeRPCUnavailable:
		return FamilyBalance
	case c >= 32 && c < 40:
		return FamilyWrap
	case c >= 40 && c < 50:
		return FamilySwap
	default:
		return FamilyGeneric
	}
}

var codeNames = map[Code]string{
	CodeInternal:                 "internal_error",
	CodeUsage:                    "usage_error",
	CodeAuth:                     "auth_error",
	CodeRateLimited:              "rate_limited",
	CodeUnavailable:              "provider_unavailable",
	CodeUnsupported:              "unsupported",
	CodeStale:                    "stale_data",
	CodePartialStrict:            "partial_results",
	CodeBlocked:                  "command_blocked",
	CodeInvalidKeyBytes:          "invalid_key_bytes",
	CodeInvalidKeyArray:          "invalid_key_array",
	CodeUnrecognizedKeyFormat:    "unrecognized_key_format",
	CodeKeyFileNotFound:          "key_file_not_found",
	CodeSigner:                   "signer_error",
	CodeInsufficientBalance:      "insufficient_balance",
	CodeRPCUnavailable:           "rpc_unavailable",
	CodeNoWrappedAccount:         "no_wrapped_account",
	CodeZeroBalance:              "zero_balance",
	CodePartialUnwrapUnsupported: "partial_unwrap_unsupported",
	CodeQuoteMismatch:            "quote_mismatch",
	CodeFeePayerMismatch:         "fee_payer_mismatch",
	CodeSubmissionFailed:         "submission_failed",
	CodeConfirmationTimeout:      "confirmation_timeout",
	CodeInterrupted:              "interrupted",
	CodeTransactionFailed:        "transaction_failed",
}

// Name is the snake_case identifier rendered in error envelopes.
func (c Code) Name() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "internal_error"
}

// Error is a typed CLI error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Ensure labels err with message. An already typed err keeps its code;
// anything else gets code.
func Ensure(code Code, message string, err error) error {
	if err == nil {
		return nil
	}
	if typed, ok := As(err); ok {
		code = typed.Code
	}
	return Wrap(code, message, err)
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// HasCode reports whether the outermost typed error in err's chain has code.
func HasCode(err error, code Code) bool {
	cErr, ok := As(err)
	return ok && cErr.Code == code
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if cliErr, ok := As(err); ok {
		return int(cliErr.Code)
	}
	return int(CodeInternal)
}
