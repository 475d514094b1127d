package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OccupiedNine220/radiovecher/internal/platform/correlation"
	apperrors "github.com/OccupiedNine220/radiovecher/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareWithStructuredError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return apperrors.ValidationError("invalid input")
	})

	err := handler(c)
	require.NoError(t, err) // ErrorHandlingMiddleware handles the error, doesn't return it

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid input", resp.Error)
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
}

func TestMiddlewareWithStandardError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return errors.New("standard error")
	})

	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, apperrors.TypeInternal, resp.Type)
}

func TestMiddlewarePassesHTTPErrorsThrough(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/test", nil), httptest.NewRecorder())

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "too many connections")
	})

	err := handler(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
}

func TestMiddlewareAllErrorTypes(t *testing.T) {
	tests := []struct {
		name       string
		err        *apperrors.Error
		wantStatus int
	}{
		{"validation", apperrors.ValidationError("invalid"), http.StatusBadRequest},
		{"not_found", apperrors.NotFoundError("missing"), http.StatusNotFound},
		{"conflict", apperrors.ConflictError("exists"), http.StatusConflict},
		{"rejected", apperrors.RejectedError("Player is not connected"), http.StatusUnprocessableEntity},
		{"internal", apperrors.InternalError("boom", errors.New("cause")), http.StatusInternalServerError},
		{"external", apperrors.ExternalError("bot down", errors.New("refused")), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/test", nil), rec)

			handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
				return tt.err.WithContext("server_id", "42")
			})
			require.NoError(t, handler(c))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.err.Type, resp.Type)
			assert.Equal(t, "42", resp.Context["server_id"])
		})
	}
}

func TestCorrelationMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"honoured", "abc-123", true},
		{"oversized replaced", strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.incoming != "" {
				req.Header.Set(correlationHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen string
			err := correlationMiddleware(func(c echo.Context) error {
				seen, _ = correlation.ID(c.Request().Context())
				return nil
			})(c)

			require.NoError(t, err)
			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(correlationHeader))
			if tt.keep {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.NotEqual(t, tt.incoming, seen)
			}
		})
	}
}
