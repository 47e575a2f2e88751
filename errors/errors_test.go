package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectvoice/logging"
)

func TestAppError_ErrorString(t *testing.T) {
	err := NewError(ErrCodeDuplicateID, "module already registered")
	assert.Equal(t, "[DUPLICATE_ID] module already registered", err.Error())

	wrapped := WrapError(stdErrors.New("dial tcp: refused"), ErrCodeInitialization, "module voice failed to initialize")
	assert.Equal(t, "[INITIALIZATION_FAILURE] module voice failed to initialize: dial tcp: refused", wrapped.Error())
}

func TestWrapError_Nil(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrCodeInternal, "x"))
}

// TestAppError_IsAndUnwrap 同错误码视为相同错误，且 cause 可被 errors.Is 找到
func TestAppError_IsAndUnwrap(t *testing.T) {
	cause := stdErrors.New("boom")
	err := WrapError(cause, ErrCodeInitialization, "init failed")

	assert.True(t, stdErrors.Is(err, NewError(ErrCodeInitialization, "other message")))
	assert.False(t, stdErrors.Is(err, NewError(ErrCodeDestruction, "")))
	assert.True(t, stdErrors.Is(err, cause))
}

func TestWithContext_DoesNotMutate(t *testing.T) {
	base := NewError(ErrCodeMissingDependency, "missing")
	withID := base.WithContext("id", "A").WithContext("dependency", "X")

	_, ok := base.Detail("id")
	assert.False(t, ok)

	id, ok := withID.Detail("id")
	require.True(t, ok)
	assert.Equal(t, "A", id)
	assert.Equal(t, []string{"dependency", "id"}, withID.DetailKeys())
}

// TestIsErrorCode_ThroughJoinAndFmt 错误码可穿透 fmt 包装与 errors.Join
func TestIsErrorCode_ThroughJoinAndFmt(t *testing.T) {
	d1 := NewError(ErrCodeDestruction, "a")
	d2 := WrapError(NewError(ErrCodeTimeout, "slow"), ErrCodeDestruction, "b")
	joined := stdErrors.Join(d1, fmt.Errorf("teardown: %w", d2))

	assert.True(t, IsErrorCode(joined, ErrCodeDestruction))
	assert.True(t, IsErrorCode(joined, ErrCodeTimeout))
	assert.False(t, IsErrorCode(joined, ErrCodeListener))
	assert.False(t, IsErrorCode(nil, ErrCodeListener))
	assert.False(t, IsErrorCode(stdErrors.New("plain"), ErrCodeInternal))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetErrorCode(nil))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(stdErrors.New("plain")))
	assert.Equal(t, ErrCodeCyclicDependency, GetErrorCode(fmt.Errorf("x: %w", NewError(ErrCodeCyclicDependency, "c"))))
}

func TestWrapWithLog(t *testing.T) {
	logger := logging.NewMemoryLogger()
	err := WrapWithLog(context.Background(), logger, logging.WarnLevel, stdErrors.New("boom"),
		ErrCodeListener, "event listener failed", logging.String("event", "voice:connected"))

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeListener, err.Code())

	entries := logger.EntriesAt(logging.WarnLevel)
	require.Len(t, entries, 1)
	evt, _ := entries[0].Field("event")
	assert.Equal(t, "voice:connected", evt)
	code, _ := entries[0].Field("error_code")
	assert.Equal(t, string(ErrCodeListener), code)

	assert.Nil(t, WrapWithLog(context.Background(), logger, logging.WarnLevel, nil, ErrCodeListener, "x"))
}

func TestFromPanic(t *testing.T) {
	assert.NoError(t, FromPanic(nil))

	err := FromPanic("bad state")
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "bad state")

	cause := stdErrors.New("nil map")
	err = FromPanic(cause)
	assert.ErrorIs(t, err, ErrPanic)
	assert.ErrorIs(t, err, cause)
}
