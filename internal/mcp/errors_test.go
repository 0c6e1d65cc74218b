package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/substratelabs/memcore/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "nil",
			err:      nil,
			wantCode: 0,
		},
		{
			name:     "record not found",
			err:      coreerrors.RecordNotFound("abc"),
			wantCode: ErrCodeRecordNotFound,
		},
		{
			name:     "confirmation required",
			err:      coreerrors.ConfirmationRequired("consolidate"),
			wantCode: ErrCodeConfirmationRequired,
		},
		{
			name:     "validation",
			err:      coreerrors.ValidationError("bad input", nil),
			wantCode: ErrCodeInvalidParams,
		},
		{
			name:     "internal",
			err:      coreerrors.InternalError("boom", nil),
			wantCode: ErrCodeInternalError,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantCode: ErrCodeTimeout,
		},
		{
			name:     "canceled",
			err:      context.Canceled,
			wantCode: ErrCodeTimeout,
		},
		{
			name:     "plain error",
			err:      errors.New("who knows"),
			wantCode: ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := coreerrors.ConfirmationRequired("consolidate")
	mapped := MapError(err)
	require.NotNil(t, mapped)
	assert.Contains(t, mapped.Message, "confirm")
}

func TestMCPError_Error(t *testing.T) {
	err := NewInvalidParamsError("missing query")
	assert.Contains(t, err.Error(), "missing query")
	assert.Contains(t, err.Error(), "-32602")
}

func TestNewMethodNotFoundError(t *testing.T) {
	err := NewMethodNotFoundError("bogus_tool")
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, "bogus_tool")
}
