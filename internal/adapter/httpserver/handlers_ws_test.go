package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/dashboard"
	"github.com/OccupiedNine220/radiovecher/internal/platform/config"
	"github.com/OccupiedNine220/radiovecher/internal/platform/correlation"
	"github.com/OccupiedNine220/radiovecher/internal/view"
	ws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWSServer(t *testing.T, factory *controllerFactory, opts ...testServerOption) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(newTestServer(t, factory, opts...))
	t.Cleanup(ts.Close)
	return ts
}

func readPatches(t *testing.T, conn *ws.Conn) []view.Patch {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg patchMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg.Patches
}

func TestWebSocket_BindsControllerToPagePath(t *testing.T) {
	factory := &controllerFactory{}
	ts := startWSServer(t, factory)

	_, _, err := dialPage(t, ts, "/queue/42", nil)
	require.NoError(t, err)

	ctrl := factory.last(t)
	assert.Equal(t, "/queue/42", ctrl.path)
	require.Eventually(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return ctrl.started
	}, time.Second, time.Millisecond)
}

func TestWebSocket_PatchesReachBrowser(t *testing.T) {
	factory := &controllerFactory{}
	ts := startWSServer(t, factory)
	conn, _, err := dialPage(t, ts, "/queue/42", nil)
	require.NoError(t, err)
	ctrl := factory.last(t)

	ctrl.sink([]view.Patch{
		{Op: view.OpText, Target: view.QueueCount, Text: "3"},
		{Op: view.OpReplace, Target: view.PlayerArea, HTML: "<p>hi</p>"},
	})

	patches := readPatches(t, conn)
	require.Len(t, patches, 2)
	assert.Equal(t, view.Patch{Op: view.OpText, Target: view.QueueCount, Text: "3"}, patches[0])
	assert.Equal(t, "<p>hi</p>", patches[1].HTML)
}

func TestWebSocket_ActionsReachController(t *testing.T) {
	ctxs := make(chan context.Context, 1)
	factory := &controllerFactory{executeFn: func(ctx context.Context, _ dashboard.Command) error {
		ctxs <- ctx
		return nil
	}}
	m := newMetricsSet()
	ts := startWSServer(t, factory, withMetrics(m))
	conn, _, err := dialPage(t, ts, "/queue/42", nil)
	require.NoError(t, err)
	ctrl := factory.last(t)

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteJSON(map[string]any{"action": "volume", "volume": 35}))

	require.Eventually(t, func() bool { return len(ctrl.received()) == 1 }, time.Second, time.Millisecond)
	got := ctrl.received()[0]
	assert.Equal(t, dashboard.ActionVolume, got.Action)
	require.NotNil(t, got.Volume)
	assert.Equal(t, 35, *got.Volume)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ws.ActionsReceived.WithLabelValues("volume")))

	ctx := <-ctxs
	_, ok := correlation.ID(ctx)
	assert.True(t, ok, "each action carries a correlation id")
}

func TestWebSocket_ActionsAreRateLimited(t *testing.T) {
	factory := &controllerFactory{}
	m := newMetricsSet()
	ts := startWSServer(t, factory, withMetrics(m), withConfig(func(cfg *config.Config) {
		cfg.ActionRatePerSecond = 0.001
		cfg.ActionBurst = 1
	}))
	conn, _, err := dialPage(t, ts, "/queue/42", nil)
	require.NoError(t, err)
	ctrl := factory.last(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, conn.WriteJSON(dashboard.Command{Action: dashboard.ActionSkip}))
	}

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.ws.ActionsThrottled) == 2
	}, time.Second, time.Millisecond)
	assert.Len(t, ctrl.received(), 1)
}

func TestWebSocket_CloseStopsController(t *testing.T) {
	factory := &controllerFactory{}
	m := newMetricsSet()
	ts := startWSServer(t, factory, withMetrics(m))
	conn, _, err := dialPage(t, ts, "/", nil)
	require.NoError(t, err)
	ctrl := factory.last(t)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.ws.ActiveConnections) == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, ctrl.isStopped, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.ws.ActiveConnections) == 0
	}, time.Second, time.Millisecond)
}

func TestWebSocket_ConnectionLimit(t *testing.T) {
	factory := &controllerFactory{}
	m := newMetricsSet()
	ts := startWSServer(t, factory, withMetrics(m), withConfig(func(cfg *config.Config) {
		cfg.MaxWebSocketConnections = 1
	}))

	_, _, err := dialPage(t, ts, "/", nil)
	require.NoError(t, err)

	_, resp, err := dialPage(t, ts, "/", nil)
	require.ErrorIs(t, err, ws.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ws.RejectedTotal))
}

func TestWebSocket_ForeignOriginRejected(t *testing.T) {
	factory := &controllerFactory{}
	ts := startWSServer(t, factory)

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := dialPage(t, ts, "/", header)
	require.ErrorIs(t, err, ws.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://radio.example.com"}}
	_, _, err = dialPage(t, ts, "/", header)
	require.NoError(t, err)
}

func TestPatchMessage_WireFormat(t *testing.T) {
	data, err := json.Marshal(patchMessage{Patches: []view.Patch{{Op: view.OpHide, Target: view.QueueList}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"patches":[{"op":"hide","target":"queueList"}]}`, string(data))
}
