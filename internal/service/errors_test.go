package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("reserve: %w", notFound("drop"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrSoldOut)
	assert.Equal(t, "reserve: drop not found", err.Error())

	v := validationf("rating must be between %d and %d", 1, 5)
	assert.ErrorIs(t, v, ErrValidation)

	var svcErr *Error
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, KindNotFound, svcErr.Kind)

	assert.NotErrorIs(t, ErrSoldOut, ErrNotActive)
}
