package errors

import (
	stderrors "errors"
	"fmt"
)

// Op names one exchange with the audit backend.
type Op string

const (
	OpScan        Op = "scan"
	OpGenerateFix Op = "generate-fix"
	OpApplyFix    Op = "apply-fix"
	OpVerify      Op = "verify"
	OpBrowse      Op = "browse"
)

// ValidationError reports an input that was rejected before any call was made.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TransportError is a network-level failure talking to the backend.
type TransportError struct {
	Op  Op
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is a non-success response or a malformed payload from the backend.
type ServiceError struct {
	Op         Op
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: malformed response: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: service responded %d: %s", e.Op, e.StatusCode, e.Message)
}

// OperationError marks the failure of a whole exchange (ScanFailure, FixFailure,
// ApplyFailure, VerifyFailure) and carries the underlying cause.
type OperationError struct {
	Op  Op
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// NewOperationError wraps err as a failure of op.
func NewOperationError(op Op, err error) error {
	return &OperationError{Op: op, Err: err}
}

// IsOp reports whether err is, or wraps, a failure of op.
func IsOp(err error, op Op) bool {
	var opErr *OperationError
	if stderrors.As(err, &opErr) {
		return opErr.Op == op
	}
	return false
}

// CommandError represents an error that occurred during command execution together with the process exit code.
type CommandError struct {
	ExitCode    int
	CommonError string
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// NewCommandError creates a new CommandError instance from err and the exit code.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
	}
}
