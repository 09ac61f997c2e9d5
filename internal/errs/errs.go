// Package errs defines the error taxonomy shared by the cred and grain
// packages.
//
// Every core failure is an *Error carrying a Code. Callers branch on the
// code with the Is* helpers, which unwrap through fmt.Errorf chains.
package errs

import (
	"errors"
	"fmt"
)

// Code categorizes core errors.
type Code string

const (
	// CodeInvalidConfiguration marks bad policy or bonus minting parameters.
	// Caller error; never retried.
	CodeInvalidConfiguration Code = "INVALID_CONFIGURATION"

	// CodeGraphIntegrity marks a malformed graph or period boundaries.
	CodeGraphIntegrity Code = "GRAPH_INTEGRITY"

	// CodeArithmetic marks a budget/weight inconsistency in grain arithmetic.
	CodeArithmetic Code = "ARITHMETIC"

	// CodeLedgerMismatch marks a report or diff against an incompatible
	// prior snapshot. Recoverable by falling back to a non-diff report.
	CodeLedgerMismatch Code = "LEDGER_MISMATCH"
)

// Error is a core failure with a code and a message naming the violated
// precondition.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidConfiguration creates an INVALID_CONFIGURATION error.
func InvalidConfiguration(format string, args ...any) *Error {
	return newf(CodeInvalidConfiguration, format, args...)
}

// GraphIntegrity creates a GRAPH_INTEGRITY error.
func GraphIntegrity(format string, args ...any) *Error {
	return newf(CodeGraphIntegrity, format, args...)
}

// Arithmetic creates an ARITHMETIC error.
func Arithmetic(format string, args ...any) *Error {
	return newf(CodeArithmetic, format, args...)
}

// LedgerMismatch creates a LEDGER_MISMATCH error.
func LedgerMismatch(format string, args ...any) *Error {
	return newf(CodeLedgerMismatch, format, args...)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidConfiguration reports whether err is an INVALID_CONFIGURATION error.
func IsInvalidConfiguration(err error) bool {
	return CodeOf(err) == CodeInvalidConfiguration
}

// IsGraphIntegrity reports whether err is a GRAPH_INTEGRITY error.
func IsGraphIntegrity(err error) bool {
	return CodeOf(err) == CodeGraphIntegrity
}

// IsArithmetic reports whether err is an ARITHMETIC error.
func IsArithmetic(err error) bool {
	return CodeOf(err) == CodeArithmetic
}

// IsLedgerMismatch reports whether err is a LEDGER_MISMATCH error.
func IsLedgerMismatch(err error) bool {
	return CodeOf(err) == CodeLedgerMismatch
}
