package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name      string
		err       error
		transient bool
		permanent bool
	}{
		{"gateway transient", NewGatewayTransientError("timeout", cause), true, false},
		{"gateway permanent", NewGatewayPermanentError("chat not found", cause), false, true},
		{"notification transient", NewNotificationError(false, cause), true, false},
		{"notification permanent", NewNotificationError(true, cause), false, true},
		{"storage", NewStorageError("commit", cause), false, false},
		{"plain error", cause, false, false},
		{"wrapped transient", fmt.Errorf("revoke: %w", NewGatewayTransientError("x", nil)), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
			assert.Equal(t, tt.permanent, IsPermanent(tt.err))
		})
	}
}

func TestStorageErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("deadlock")
	err := fmt.Errorf("grant: %w", NewStorageError("failed to commit grant", cause))

	assert.True(t, IsStorageError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "deadlock")
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(errors.New("Error 1062: Duplicate entry '7' for key 'users.telegram_user_id'")))
	assert.True(t, IsDuplicateError(errors.New("UNIQUE constraint failed: users.telegram_user_id")))
	assert.False(t, IsDuplicateError(errors.New("connection refused")))
	assert.False(t, IsDuplicateError(nil))
}
