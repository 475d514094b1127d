package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"

	apperrors "github.com/OccupiedNine220/radiovecher/internal/platform/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleIndex(t *testing.T) {
	srv := newTestServer(t, &controllerFactory{})

	rec := get(t, srv, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="serverList"`)
	assert.Contains(t, body, `id="ordersList"`)
	assert.Contains(t, body, `id="radioStations"`)
	assert.Contains(t, body, "/static/js/dashboard.js")
}

func TestHandleQueue(t *testing.T) {
	srv := newTestServer(t, &controllerFactory{})

	rec := get(t, srv, "/queue/123456789012345678")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="playerArea"`)
	assert.Contains(t, body, `id="queueList"`)
	assert.Contains(t, body, `id="addTrackModal"`)
}

func TestHandleQueue_NonNumericIDIsNotFound(t *testing.T) {
	srv := newTestServer(t, &controllerFactory{})

	for _, path := range []string{"/queue/abc", "/queue/12abc"} {
		rec := get(t, srv, path)

		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		var resp apperrors.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, apperrors.TypeNotFound, resp.Type)
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, &controllerFactory{})

	rec := get(t, srv, "/static/js/dashboard.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "patches")

	rec = get(t, srv, "/static/img/default-music.png")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, srv, "/static/missing.js")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, &controllerFactory{})

	rec := get(t, srv, "/")

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
}

func TestMetricsEndpoint(t *testing.T) {
	m := newMetricsSet()
	srv := newTestServer(t, &controllerFactory{}, withMetrics(m))

	get(t, srv, "/queue/42")
	get(t, srv, "/health/live")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.http.RequestsTotal.WithLabelValues(http.MethodGet, "/queue/:serverID", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.http.RequestsTotal), "probes are not recorded")

	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "radiovecher_http_requests_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetricsEndpoint_AbsentWithoutRegistry(t *testing.T) {
	srv := newTestServer(t, &controllerFactory{})

	rec := get(t, srv, "/metrics")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
