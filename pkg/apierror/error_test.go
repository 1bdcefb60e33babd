package apierror

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSON(t *testing.T) {
	e := ValidationError("bad input", FieldError{Field: "boxes", Message: "too many"})

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string       `json:"code"`
			Message string       `json:"message"`
			Details []FieldError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(e.ToJSON(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "bad input", body.Error.Message)
	require.Len(t, body.Error.Details, 1)
	assert.Equal(t, "boxes", body.Error.Details[0].Field)
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, http.StatusConflict, Conflict("SOLD_OUT", "gone").StatusCode)
	assert.Equal(t, "SOLD_OUT", Conflict("SOLD_OUT", "gone").Code)
	assert.Equal(t, "CONFLICT", Conflict("", "x").Code)
	assert.Equal(t, http.StatusTooManyRequests, TooManyRequests("").StatusCode)
	assert.Equal(t, "Resource not found", NotFound("").Message)
	assert.NotContains(t, string(NotFound("").ToJSON()), "details")
}
