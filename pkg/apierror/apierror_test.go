package apierror

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeForStatus(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		http.StatusBadRequest:          CodeBadRequest,
		http.StatusUnauthorized:        CodeAuth,
		http.StatusForbidden:           CodeForbidden,
		http.StatusNotFound:            CodeNotFound,
		http.StatusConflict:            CodeConflict,
		http.StatusGone:                CodeGone,
		http.StatusUnprocessableEntity: CodeUnprocessable,
		http.StatusInternalServerError: CodeCantPerform,
		http.StatusTeapot:              CodeCantPerform,
	}

	for status, code := range cases {
		assert.Equal(t, code, CodeForStatus(status), "status %d", status)
	}
}

func TestConstructorsDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusUnauthorized, Unauthorized("").Status)
	assert.Equal(t, "Wrong credentials", Unauthorized("").Message)
	assert.Equal(t, http.StatusForbidden, Forbidden("").Status)
	assert.Equal(t, CodeNotFound, NotFound("User not found.").Code)
	assert.Equal(t, "User not found.", NotFound("User not found.").Message)
	assert.True(t, Internal().Critical)
	assert.False(t, Conflict("").Critical)
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "KO_AUTH: Wrong credentials", Unauthorized("").Error())
	assert.Equal(t, "KO_BAD_REQUEST: invalid JSON body (payload)", BadRequest("invalid JSON body", "payload").Error())

	var nilErr *APIError
	assert.Equal(t, "", nilErr.Error())
}
