package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("%w: status 403", ErrAuth)
	err := &PhaseError{Phase: "login", Attempts: 4, Err: cause}

	assert.True(t, errors.Is(err, ErrAuth))
	assert.Contains(t, err.Error(), "login failed after 4 attempts")
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(fmt.Errorf("start: %w", ErrLaunch)))
	assert.True(t, Retryable(ErrSaveTimeout))
	assert.True(t, Retryable(fmt.Errorf("page: %w", ErrDisconnected)))
}
