package pushchannel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Engine.IO v4 packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioNoop    = '6'
)

// Socket.IO v5 packet types, carried inside an Engine.IO message.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

var (
	errEmptyFrame     = errors.New("empty frame")
	errNotEventFrame  = errors.New("not an event frame")
	errMalformedEvent = errors.New("malformed event")
)

// packetPong and packetConnect are the only frames the client ever sends.
const (
	packetPong    = "3"
	packetConnect = "40"
)

type frameKind int

const (
	frameOther frameKind = iota
	frameOpen
	frameClose
	framePing
	frameConnect
	frameConnectError
	frameDisconnect
	frameEvent
)

type frame struct {
	kind    frameKind
	open    openPayload
	event   string
	payload json.RawMessage
	errMsg  string
}

type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// readTimeout is how long the server may stay silent before the connection is
// considered dead: one ping interval plus the ping timeout.
func (o openPayload) readTimeout() time.Duration {
	interval, timeout := o.PingInterval, o.PingTimeout
	if interval <= 0 {
		interval = 25000
	}
	if timeout <= 0 {
		timeout = 20000
	}
	return time.Duration(interval+timeout) * time.Millisecond
}

func decodeFrame(data []byte) (frame, error) {
	if len(data) == 0 {
		return frame{}, errEmptyFrame
	}

	switch data[0] {
	case eioOpen:
		var open openPayload
		if err := json.Unmarshal(data[1:], &open); err != nil {
			return frame{}, fmt.Errorf("decode open packet: %w", err)
		}
		return frame{kind: frameOpen, open: open}, nil
	case eioClose:
		return frame{kind: frameClose}, nil
	case eioPing:
		return frame{kind: framePing}, nil
	case eioPong, eioNoop:
		return frame{kind: frameOther}, nil
	case eioMessage:
		return decodeSocketPacket(data[1:])
	default:
		return frame{kind: frameOther}, nil
	}
}

func decodeSocketPacket(data []byte) (frame, error) {
	if len(data) == 0 {
		return frame{}, errEmptyFrame
	}
	kind, rest := data[0], skipNamespace(data[1:])

	switch kind {
	case sioConnect:
		return frame{kind: frameConnect}, nil
	case sioDisconnect:
		return frame{kind: frameDisconnect}, nil
	case sioConnectError:
		var body struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(rest, &body)
		return frame{kind: frameConnectError, errMsg: body.Message}, nil
	case sioEvent:
		return decodeEvent(skipAckID(rest))
	default:
		return frame{kind: frameOther}, nil
	}
}

// decodeEvent parses ["name", payload, ...]. Extra arguments are ignored.
func decodeEvent(data []byte) (frame, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(data, &args); err != nil {
		return frame{}, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if len(args) == 0 {
		return frame{}, fmt.Errorf("%w: no event name", errMalformedEvent)
	}

	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return frame{}, fmt.Errorf("%w: event name: %v", errMalformedEvent, err)
	}

	f := frame{kind: frameEvent, event: name}
	if len(args) > 1 {
		f.payload = args[1]
	}
	return f, nil
}

// skipNamespace drops a leading "/nsp," prefix.
func skipNamespace(data []byte) []byte {
	if len(data) == 0 || data[0] != '/' {
		return data
	}
	for i, b := range data {
		if b == ',' {
			return data[i+1:]
		}
	}
	return nil
}

func skipAckID(data []byte) []byte {
	i := 0
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		i++
	}
	return data[i:]
}

// EndpointURL turns the bot's base URL into its Socket.IO WebSocket endpoint.
func EndpointURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse push url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported push url scheme %q", u.Scheme)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	} else if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
