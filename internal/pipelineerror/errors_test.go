package pipelineerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "provider unavailable",
			err:      &ProviderUnavailableError{Backend: "gemini", Op: "extract", Err: errors.New("quota")},
			expected: "backend gemini unavailable during extract: quota",
		},
		{
			name:     "transcription with cause",
			err:      &TranscriptionFailedError{Backend: "gigachat", Reason: "empty transcript", Err: errors.New("silence")},
			expected: "transcription failed on gigachat: empty transcript: silence",
		},
		{
			name:     "transcription without cause",
			err:      &TranscriptionFailedError{Backend: "gigachat", Reason: "empty transcript"},
			expected: "transcription failed on gigachat: empty transcript",
		},
		{
			name:     "validation",
			err:      &ValidationError{Field: "amount", Reason: "must be positive"},
			expected: "invalid amount: must be positive",
		},
		{
			name:     "provisioning",
			err:      &CategoryProvisioningError{TenantID: "t-1"},
			expected: "tenant t-1 has no fallback category",
		},
		{
			name:     "persistence",
			err:      &PersistenceError{Op: "insert transaction", Err: errors.New("conn reset")},
			expected: "persistence failed during insert transaction: conn reset",
		},
		{
			name:     "not owner",
			err:      &NotOwnerError{TenantID: "t-1", CategoryID: "c-9"},
			expected: "category c-9 does not belong to tenant t-1",
		},
		{
			name:     "not found",
			err:      &NotFoundError{Entity: "category", ID: "c-9"},
			expected: "category c-9 not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrapAndClassify(t *testing.T) {
	root := errors.New("deadline")
	wrapped := fmt.Errorf("outer: %w", &ProviderUnavailableError{Backend: "vertex", Op: "extract", Err: root})

	assert.True(t, errors.Is(wrapped, root))
	assert.True(t, IsProviderUnavailable(wrapped))
	assert.False(t, IsTranscriptionFailed(wrapped))
	assert.True(t, IsTyped(wrapped))

	assert.True(t, IsPersistence(&PersistenceError{Op: "x", Err: root}))
	assert.True(t, IsValidation(fmt.Errorf("w: %w", &ValidationError{Field: "date"})))
	assert.True(t, IsNotOwner(&NotOwnerError{}))
	assert.True(t, IsNotFound(&NotFoundError{}))
	assert.True(t, IsTyped(fmt.Errorf("decode: %w", ErrMalformedExtraction)))
	assert.False(t, IsTyped(errors.New("plain")))
}
