package pushchannel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/internal/domain"
	"github.com/OccupiedNine220/radiovecher/internal/platform/correlation"
	"github.com/OccupiedNine220/radiovecher/internal/platform/retry"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// Socket.IO client reconnection defaults.
const (
	reconnectDelay    = 1 * time.Second
	reconnectDelayMax = 5 * time.Second
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 5 * time.Second
)

var errHandshake = errors.New("socket.io handshake failed")

// Listener holds the upstream push connection and republishes its events to
// target. Delivery is fire-and-forget: nothing is acknowledged.
type Listener struct {
	endpoint string
	target   domain.PushSubscriber
	dialer   *websocket.Dialer
	clock    clockwork.Clock
	metrics  *metrics.PushMetrics

	connected atomic.Bool
}

// NewListener creates a listener for a Socket.IO endpoint as built by
// EndpointURL. m may be nil.
func NewListener(endpoint string, target domain.PushSubscriber, clock clockwork.Clock, m *metrics.PushMetrics) *Listener {
	return &Listener{
		endpoint: endpoint,
		target:   target,
		dialer:   &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		clock:    clock,
		metrics:  m,
	}
}

// Connected reports whether the push channel is currently up.
func (l *Listener) Connected() bool {
	return l.connected.Load()
}

type session struct {
	conn *websocket.Conn
	open openPayload
}

// Run connects and serves until ctx is done, redialing after every disconnect.
func (l *Listener) Run(ctx context.Context) error {
	policy := retry.Policy{
		InitialBackoff: reconnectDelay,
		MaxBackoff:     reconnectDelayMax,
		Clock:          l.clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Push channel connect failed", "attempt", attempt, "retry_in", backoff, "error", err)
		},
	}

	for {
		s, err := retry.Do(ctx, policy, retry.AlwaysRetry, func() (*session, error) {
			return l.dial(ctx)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("push channel: %w", err)
		}

		slog.Info("Push channel connected", "sid", s.open.SID)
		err = l.serve(ctx, s)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("Push channel disconnected", "error", err)
		if l.metrics != nil {
			l.metrics.Reconnects.Inc()
		}

		select {
		case <-l.clock.After(reconnectDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

// dial opens the WebSocket and completes the Engine.IO open and Socket.IO
// namespace connect exchange.
func (l *Listener) dial(ctx context.Context) (*session, error) {
	conn, _, err := l.dialer.DialContext(ctx, l.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", l.endpoint, err)
	}

	s, err := handshake(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func handshake(conn *websocket.Conn) (*session, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	f, err := readFrame(conn)
	if err != nil {
		return nil, err
	}
	if f.kind != frameOpen {
		return nil, fmt.Errorf("%w: expected open packet", errHandshake)
	}
	s := &session{conn: conn, open: f.open}

	if err := writeFrame(conn, packetConnect); err != nil {
		return nil, err
	}

	for {
		f, err := readFrame(conn)
		if err != nil {
			return nil, err
		}
		switch f.kind {
		case frameConnect:
			return s, nil
		case frameConnectError:
			return nil, fmt.Errorf("%w: %s", errHandshake, f.errMsg)
		case framePing:
			if err := writeFrame(conn, packetPong); err != nil {
				return nil, err
			}
		case frameClose, frameDisconnect:
			return nil, fmt.Errorf("%w: closed by server", errHandshake)
		}
	}
}

func (l *Listener) serve(ctx context.Context, s *session) error {
	l.setConnected(true)
	defer l.setConnected(false)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()
	defer s.conn.Close()

	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.open.readTimeout()))

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		f, err := decodeFrame(data)
		if err != nil {
			l.countDecodeError()
			slog.Warn("Dropping undecodable push frame", "error", err)
			continue
		}

		switch f.kind {
		case framePing:
			if err := writeFrame(s.conn, packetPong); err != nil {
				return err
			}
		case frameClose, frameDisconnect:
			return errors.New("closed by server")
		case frameEvent:
			l.dispatch(correlation.WithID(ctx, correlation.NewID()), f)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, f frame) {
	switch f.event {
	case domain.TopicQueueUpdate:
		var update domain.QueueUpdate
		if !l.decodePayload(ctx, f, &update) {
			return
		}
		l.countEvent(f.event)
		slog.DebugContext(ctx, "Queue update received", "servers", len(update))
		l.target.OnQueueUpdate(update)

	case domain.TopicCurrentTrackUpdate:
		var update domain.NowPlayingUpdate
		if !l.decodePayload(ctx, f, &update) {
			return
		}
		l.countEvent(f.event)
		slog.DebugContext(ctx, "Current track update received", "servers", len(update))
		l.target.OnNowPlayingUpdate(update)

	default:
		slog.DebugContext(ctx, "Ignoring push event", "event", f.event)
	}
}

func (l *Listener) decodePayload(ctx context.Context, f frame, v any) bool {
	if len(f.payload) == 0 {
		return true
	}
	if err := json.Unmarshal(f.payload, v); err != nil {
		l.countDecodeError()
		slog.WarnContext(ctx, "Dropping undecodable push payload", "event", f.event, "error", err)
		return false
	}
	return true
}

func (l *Listener) setConnected(up bool) {
	l.connected.Store(up)
	if l.metrics == nil {
		return
	}
	if up {
		l.metrics.Connected.Set(1)
	} else {
		l.metrics.Connected.Set(0)
	}
}

func (l *Listener) countEvent(topic string) {
	if l.metrics != nil {
		l.metrics.EventsReceived.WithLabelValues(topic).Inc()
	}
}

func (l *Listener) countDecodeError() {
	if l.metrics != nil {
		l.metrics.DecodeErrors.Inc()
	}
}

func readFrame(conn *websocket.Conn) (frame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return frame{}, fmt.Errorf("read: %w", err)
	}
	return decodeFrame(data)
}

func writeFrame(conn *websocket.Conn, packet string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(packet)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
