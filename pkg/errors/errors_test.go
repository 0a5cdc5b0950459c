package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	t.Run("nil error has empty code", func(t *testing.T) {
		assert.Equal(t, Code(""), CodeOf(nil))
	})

	t.Run("uncoded error defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeInsufficientFunds, "balance too low"))
		assert.Equal(t, CodeInsufficientFunds, CodeOf(err))
		assert.True(t, HasCode(err, CodeInsufficientFunds))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil passthrough", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "should vanish"))
	})

	t.Run("retains cause", func(t *testing.T) {
		cause := fmt.Errorf("disk full")
		err := Wrap(cause, CodeInternal, "append transaction")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "disk full")
		assert.True(t, IsFatal(err))
	})
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput:       http.StatusUnprocessableEntity,
		CodeInsufficientFunds:  http.StatusPaymentRequired,
		CodeNotFound:           http.StatusNotFound,
		CodeAlreadyActed:       http.StatusConflict,
		CodeRateLimited:        http.StatusTooManyRequests,
		CodeBanned:             http.StatusForbidden,
		CodeUnauthorizedCaller: http.StatusForbidden,
		CodeUnavailable:        http.StatusNotImplemented,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), string(code))
	}
}
