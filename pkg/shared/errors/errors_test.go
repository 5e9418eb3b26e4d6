package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.EqualError(t, NewValidationError("path", "must not be empty"), "invalid path: must not be empty")
	assert.EqualError(t, &ValidationError{Reason: "nothing selected"}, "invalid input: nothing selected")
	assert.EqualError(t, &ServiceError{Op: OpScan, StatusCode: 500, Message: "boom"}, "scan: service responded 500: boom")
	assert.EqualError(t, &ServiceError{Op: OpVerify, Message: "missing confidence"}, "verify: malformed response: missing confidence")
	assert.EqualError(t, NewCommandError(stderrors.New("bad flag"), 1), "bad flag")
}

func TestIsOp(t *testing.T) {
	cause := &TransportError{Op: OpApplyFix, Err: stderrors.New("connection reset")}
	err := fmt.Errorf("applying: %w", NewOperationError(OpApplyFix, cause))

	assert.True(t, IsOp(err, OpApplyFix))
	assert.False(t, IsOp(err, OpScan))
	assert.False(t, IsOp(cause, OpApplyFix))
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "applying: apply-fix failed: apply-fix: transport error: connection reset")
}
