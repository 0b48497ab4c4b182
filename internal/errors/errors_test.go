package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPError(t *testing.T) {
	cases := map[int]ErrorCategory{
		400: Irrecoverable,
		401: Irrecoverable,
		404: Irrecoverable,
		408: Recoverable,
		429: Recoverable,
		500: Recoverable,
		503: Recoverable,
		302: Recoverable,
	}
	for code, want := range cases {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			err := NewHTTPError(code, "", "login")
			assert.Equal(t, want, err.Category)
			assert.Equal(t, want == Irrecoverable, IsIrrecoverable(err))
		})
	}
}

func TestIsUnauthorized_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("sync profile: %w", NewHTTPError(401, "{}", "me"))
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 401, StatusCode(err))
	assert.False(t, IsUnauthorized(NewHTTPError(403, "", "me")))
	assert.False(t, IsUnauthorized(stderrors.New("plain")))
}

func TestNetworkErrorIsRecoverableAndUnwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewNetworkError("refresh", cause)
	assert.False(t, IsIrrecoverable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Recoverable")
}

func TestIrrecoverableHelpers(t *testing.T) {
	assert.True(t, IsIrrecoverable(Irrecoverablef("bad %s", "value")))
	assert.True(t, IsIrrecoverable(AsIrrecoverable(stderrors.New("x"))))
	assert.Nil(t, AsIrrecoverable(nil))
	assert.Equal(t, "Unknown(9)", ErrorCategory(9).String())
}
