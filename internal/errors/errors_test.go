package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeStoreOpen, CategoryStorage},
		{ErrCodeIndexBuild, CategoryIndex},
		{ErrCodeInvalidInput, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestNew_DerivesSeverity(t *testing.T) {
	assert.Equal(t, SeverityFatal, New(ErrCodeStoreCorrupt, "x", nil).Severity)
	assert.Equal(t, SeverityWarning, New(ErrCodeIndexBuild, "x", nil).Severity)
	assert.Equal(t, SeverityWarning, New(ErrCodeCacheFailed, "x", nil).Severity)
	assert.Equal(t, SeverityError, New(ErrCodeRecordNotFound, "x", nil).Severity)
}

func TestError_FormatsCodeAndMessage(t *testing.T) {
	err := New(ErrCodeQueryEmpty, "query cannot be empty", nil)
	assert.Equal(t, "[ERR_402_QUERY_EMPTY] query cannot be empty", err.Error())
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := Wrap(ErrCodeStoreOpen, cause)

	require.NotNil(t, err)
	assert.Equal(t, "disk on fire", err.Message)
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeStoreOpen, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeRecordNotFound, "record 1 not found", nil)
	b := New(ErrCodeRecordNotFound, "record 2 not found", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, New(ErrCodeInternal, "other", nil)))
}

func TestConfirmationRequired(t *testing.T) {
	err := ConfirmationRequired("consolidate_memories")

	assert.Equal(t, ErrCodeConfirmationMissing, err.Code)
	assert.Equal(t, CategoryValidation, err.Category)
	assert.Contains(t, err.Error(), "consolidate_memories")
	assert.NotEmpty(t, err.Suggestion)
}

func TestWithDetail_Chains(t *testing.T) {
	err := New(ErrCodeIndexBuild, "build failed", nil).
		WithDetail("record_id", "abc").
		WithDetail("stage", "vector")

	assert.Equal(t, "abc", err.Details["record_id"])
	assert.Equal(t, "vector", err.Details["stage"])
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeStoreCorrupt, "x", nil)))
	assert.False(t, IsFatal(New(ErrCodeIndexBuild, "x", nil)))
	assert.False(t, IsFatal(stderrors.New("plain")))
	assert.False(t, IsFatal(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeQueryEmpty, GetCode(New(ErrCodeQueryEmpty, "x", nil)))
	assert.Equal(t, "", GetCode(stderrors.New("plain")))
}
