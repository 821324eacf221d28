package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("spot taken")
	err := fmt.Errorf("reserve: %w", Conflict(cause, "spot %d is occupied", 7))

	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "spot 7 is occupied", MessageOf(err))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestUnclassifiedErrorsAreInternal(t *testing.T) {
	err := errors.New("connection reset")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "Internal server error", MessageOf(err))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestInternalMessageIsHidden(t *testing.T) {
	err := Internal(errors.New("pq: deadlock detected"), "failed to create booking")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "Internal server error", MessageOf(err))
	assert.Contains(t, err.Error(), "deadlock")
}

func TestKindIsValid(t *testing.T) {
	assert.True(t, KindInsufficientFunds.IsValid())
	assert.False(t, Kind("teapot").IsValid())
}
