package pushchannel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSubscriber struct {
	onQueueUpdateFn      func(domain.QueueUpdate)
	onNowPlayingUpdateFn func(domain.NowPlayingUpdate)
}

func (m *mockSubscriber) OnQueueUpdate(u domain.QueueUpdate) {
	if m.onQueueUpdateFn != nil {
		m.onQueueUpdateFn(u)
	}
}

func (m *mockSubscriber) OnNowPlayingUpdate(u domain.NowPlayingUpdate) {
	if m.onNowPlayingUpdateFn != nil {
		m.onNowPlayingUpdateFn(u)
	}
}

// fakeBot speaks just enough Socket.IO to hand the test a connected socket.
type fakeBot struct {
	t        *testing.T
	srv      *httptest.Server
	conns    chan *websocket.Conn
	rejectNS bool
}

func newFakeBot(t *testing.T) *fakeBot {
	t.Helper()
	bot := &fakeBot{t: t, conns: make(chan *websocket.Conn, 4)}
	upgrader := websocket.Upgrader{}
	bot.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/socket.io/" || r.URL.Query().Get("EIO") != "4" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"s1","upgrades":[],"pingInterval":25000,"pingTimeout":20000}`))

		_, msg, err := conn.ReadMessage()
		if err != nil || string(msg) != "40" {
			conn.Close()
			return
		}
		if bot.rejectNS {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`44{"message":"nope"}`))
			conn.Close()
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"n1"}`))
		bot.conns <- conn
	}))
	t.Cleanup(bot.srv.Close)
	return bot
}

func (b *fakeBot) endpoint() string {
	u, err := EndpointURL(b.srv.URL)
	require.NoError(b.t, err)
	return u
}

func (b *fakeBot) accept() *websocket.Conn {
	b.t.Helper()
	select {
	case conn := <-b.conns:
		b.t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		b.t.Fatal("listener never connected")
		return nil
	}
}

func (b *fakeBot) send(conn *websocket.Conn, data []byte) {
	b.t.Helper()
	require.NoError(b.t, conn.WriteMessage(websocket.TextMessage, data))
}

func runListener(t *testing.T, l *Listener) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("listener did not stop")
		}
	})
}

func TestListener_DispatchesTopics(t *testing.T) {
	bot := newFakeBot(t)
	queues := make(chan domain.QueueUpdate, 1)
	tracks := make(chan domain.NowPlayingUpdate, 1)
	sub := &mockSubscriber{
		onQueueUpdateFn:      func(u domain.QueueUpdate) { queues <- u },
		onNowPlayingUpdateFn: func(u domain.NowPlayingUpdate) { tracks <- u },
	}
	m := metrics.NewPushMetrics(prometheus.NewRegistry())
	l := NewListener(bot.endpoint(), sub, clockwork.NewRealClock(), m)
	runListener(t, l)

	conn := bot.accept()
	require.Eventually(t, l.Connected, time.Second, time.Millisecond)

	bot.send(conn, encodeEvent(t, "queue_update", map[string]any{
		"42": []map[string]any{{"title": "one", "length": 61000}},
	}))
	bot.send(conn, encodeEvent(t, "current_track_update", map[string]any{"42": nil}))

	select {
	case u := <-queues:
		require.Len(t, u["42"], 1)
		assert.Equal(t, "one", u["42"][0].Title)
	case <-time.After(time.Second):
		t.Fatal("no queue update")
	}
	select {
	case u := <-tracks:
		np, ok := u["42"]
		assert.True(t, ok)
		assert.Nil(t, np)
	case <-time.After(time.Second):
		t.Fatal("no track update")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsReceived.WithLabelValues("queue_update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Connected))
}

func TestListener_AnswersPing(t *testing.T) {
	bot := newFakeBot(t)
	l := NewListener(bot.endpoint(), &mockSubscriber{}, clockwork.NewRealClock(), nil)
	runListener(t, l)

	conn := bot.accept()
	bot.send(conn, []byte("2"))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "3", string(msg))
}

func TestListener_DropsBadPayloadAndUnknownEvents(t *testing.T) {
	bot := newFakeBot(t)
	var mu sync.Mutex
	var got []domain.QueueUpdate
	sub := &mockSubscriber{onQueueUpdateFn: func(u domain.QueueUpdate) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, u)
	}}
	m := metrics.NewPushMetrics(prometheus.NewRegistry())
	l := NewListener(bot.endpoint(), sub, clockwork.NewRealClock(), m)
	runListener(t, l)

	conn := bot.accept()
	bot.send(conn, []byte(`42["queue_update","not a map"]`))
	bot.send(conn, []byte(`42["volume_update",{"42":50}]`))
	bot.send(conn, []byte(`garbage`))
	bot.send(conn, encodeEvent(t, "queue_update", map[string]any{"7": []any{}}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, time.Millisecond)
	assert.Contains(t, got[0], "7")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors))
}

func TestListener_ReconnectsAfterDisconnect(t *testing.T) {
	bot := newFakeBot(t)
	clock := clockwork.NewFakeClock()
	m := metrics.NewPushMetrics(prometheus.NewRegistry())
	l := NewListener(bot.endpoint(), &mockSubscriber{}, clock, m)
	runListener(t, l)

	first := bot.accept()
	bot.send(first, []byte("1"))

	require.Eventually(t, func() bool { return !l.Connected() }, time.Second, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(reconnectDelay)

	bot.accept()
	require.Eventually(t, l.Connected, time.Second, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reconnects))
}

func TestListener_ConnectErrorIsRetried(t *testing.T) {
	bot := newFakeBot(t)
	bot.rejectNS = true
	clock := clockwork.NewFakeClock()
	l := NewListener(bot.endpoint(), &mockSubscriber{}, clock, nil)
	runListener(t, l)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.False(t, l.Connected())
}

func TestHub_FanOut(t *testing.T) {
	m := metrics.NewPushMetrics(prometheus.NewRegistry())
	hub := NewHub(m)

	var a, b int
	unsubA := hub.Subscribe(&mockSubscriber{onQueueUpdateFn: func(domain.QueueUpdate) { a++ }})
	hub.Subscribe(&mockSubscriber{onQueueUpdateFn: func(domain.QueueUpdate) { b++ }})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Subscribers))

	hub.OnQueueUpdate(domain.QueueUpdate{})
	unsubA()
	unsubA()
	hub.OnQueueUpdate(domain.QueueUpdate{})
	hub.OnNowPlayingUpdate(domain.NowPlayingUpdate{})

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, hub.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Subscribers))
}

func TestEndpointURL_FromHTTPServer(t *testing.T) {
	u, err := EndpointURL("http://127.0.0.1:1234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "ws://127.0.0.1:1234/socket.io/"))
}
