package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/catalogsearch/pkg/errors"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		sentinel   error
		wantStatus int
		wantCode   string
	}{
		{"not found", 404, `{"error":{"code":"NOT_FOUND","message":"page 9"}}`, apperrors.ErrNotFound, 404, "NOT_FOUND"},
		{"bad request", 400, `{"error":{"code":"INVALID_INPUT","message":"bad page"}}`, apperrors.ErrInvalidInput, 400, "INVALID_INPUT"},
		{"rate limited", 429, `slow down`, apperrors.ErrTooManyRequest, 429, "RATE_LIMITED"},
		{"unavailable", 503, `{"error":{"code":"SERVICE_UNAVAILABLE","message":"db down"}}`, apperrors.ErrServiceUnavail, 503, "UPSTREAM_UNAVAILABLE"},
		{"bad gateway html", 502, `<html>bad gateway</html>`, apperrors.ErrServiceUnavail, 503, "UPSTREAM_UNAVAILABLE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ParseResponseError(makeResponse(tc.status, tc.body), "catalog")

			assert.ErrorIs(t, err, tc.sentinel)
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tc.wantStatus, appErr.Status)
			assert.Equal(t, tc.wantCode, appErr.Code)
		})
	}
}

func TestParseResponseError_UnknownStatusKeepsCode(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusConflict, `{"error":{"code":"VERSION_CONFLICT","message":"stale"}}`), "catalog")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VERSION_CONFLICT", appErr.Code)
	assert.Equal(t, "catalog: stale", appErr.Message)
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestParseResponseError_UnstructuredDefault(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusTeapot, `short and stout`), "catalog")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "UPSTREAM_ERROR", appErr.Code)
	assert.Contains(t, appErr.Message, "short and stout")
}
