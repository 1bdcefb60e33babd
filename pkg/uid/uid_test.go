package uid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsValidAndUnique(t *testing.T) {
	a, b := New(), New()
	assert.True(t, IsValid(a))
	assert.NotEqual(t, a, b)
	assert.False(t, IsValid("ABC123"))
}
