package pickup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoplate-api/internal/model"
)

func TestNewCodeUsesUnambiguousAlphabet(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, c := range code {
			require.True(t, strings.ContainsRune(Alphabet, c), "unexpected %q in %s", c, code)
		}
		require.NotContains(t, code, "0")
		require.NotContains(t, code, "O")
		require.NotContains(t, code, "1")
		require.NotContains(t, code, "I")
	}
}

func TestParse(t *testing.T) {
	scan, err := Parse("ECOPLATE:AB3XYZ:north_commons")
	require.NoError(t, err)
	assert.Equal(t, "AB3XYZ", scan.Code)
	assert.Equal(t, model.LocationNorthCommons, scan.Location)

	scan, err = Parse("  ab3xyz \n")
	require.NoError(t, err)
	assert.Equal(t, "AB3XYZ", scan.Code)
	assert.Empty(t, scan.Location)

	scan, err = Parse("ecoplate:ab3xyz:south_hall")
	require.NoError(t, err)
	assert.Equal(t, "AB3XYZ", scan.Code)

	for _, bad := range []string{"", "AB3XY", "AB3XYZ7", "AB-XYZ", "OTHER:AB3XYZ:south_hall", "ECOPLATE:AB3XYZ"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	code, err := NewCode()
	require.NoError(t, err)

	scan, err := Parse(Payload(code, model.LocationLibraryCafe))
	require.NoError(t, err)
	assert.Equal(t, code, scan.Code)
	assert.Equal(t, model.LocationLibraryCafe, scan.Location)
}
