package errutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs(t *testing.T) {
	err := InsufficientBalance("insufficient dust", nil)
	require.True(t, Is(err, StatusInsufficientBalance))
	require.False(t, Is(err, StatusNotFound))

	wrapped := fmt.Errorf("spend: %w", err)
	require.True(t, Is(wrapped, StatusInsufficientBalance))

	require.False(t, Is(errors.New("plain"), StatusInternal))
}

func TestConstructorKeepsCause(t *testing.T) {
	cause := errors.New("rpc down")
	err := ExternalFailure("escrow lock failed", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "rpc down")
	require.Contains(t, err.Error(), string(StatusExternalFailure))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[CoreStatus]int{
		StatusNotFound:            http.StatusNotFound,
		StatusUnauthorized:        http.StatusUnauthorized,
		StatusAlreadyApplied:      http.StatusConflict,
		StatusInsufficientBalance: http.StatusUnprocessableEntity,
		StatusExternalFailure:     http.StatusBadGateway,
		CoreStatus("whatever"):    http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestNormalize(t *testing.T) {
	require.Equal(t, StatusNotFound, Normalize(NotFound("job not found", nil)).Code)
	require.Equal(t, StatusGatewayTimeout, Normalize(context.DeadlineExceeded).Code)
	require.Equal(t, StatusInternal, Normalize(errors.New("boom")).Code)
}
