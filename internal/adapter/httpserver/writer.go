package httpserver

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/internal/view"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 32
)

type patchMessage struct {
	Patches []view.Patch `json:"patches"`
}

// patchWriter owns all writes to one browser connection. Patches are queued
// without blocking; a browser that stops reading loses batches, not the
// controller. Fade and remove patches are never lost: when the queue is full
// they are held back and written as soon as the run loop gets to them, so
// toasts still leave the page.
type patchWriter struct {
	connection  *websocket.Conn
	clock       clockwork.Clock
	metrics     *metrics.WebSocketMetrics
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup

	cleanupMu    sync.Mutex
	cleanup      []view.Patch
	cleanupReady chan struct{}
}

func newPatchWriter(connection *websocket.Conn, clock clockwork.Clock, m *metrics.WebSocketMetrics) *patchWriter {
	pw := &patchWriter{
		connection:  connection,
		clock:       clock,
		metrics:     m,
		sendChannel:  make(chan []byte, messageBufferSize),
		doneChannel:  make(chan struct{}),
		cleanupReady: make(chan struct{}, 1),
	}
	pw.configurePongHandler()
	pw.wg.Add(1)
	go pw.run()
	return pw
}

// send is a notify.Sink; it is safe for concurrent use.
func (pw *patchWriter) send(patches []view.Patch) {
	if len(patches) == 0 {
		return
	}
	msg, err := json.Marshal(patchMessage{Patches: patches})
	if err != nil {
		slog.Error("Failed to encode patches", "error", err)
		return
	}

	select {
	case <-pw.doneChannel:
	case pw.sendChannel <- msg:
		if pw.metrics != nil {
			pw.metrics.PatchesSent.Add(float64(len(patches)))
		}
	default:
		held := pw.holdCleanup(patches)
		if pw.metrics != nil {
			pw.metrics.SlowClientsDrops.Inc()
		}
		slog.Warn("Browser too slow, dropping patches", "count", len(patches)-held, "held", held)
	}
}

// holdCleanup keeps the fade and remove patches of a batch that did not fit.
func (pw *patchWriter) holdCleanup(patches []view.Patch) int {
	pw.cleanupMu.Lock()
	defer pw.cleanupMu.Unlock()

	held := 0
	for _, p := range patches {
		if p.Op == view.OpFade || p.Op == view.OpRemove {
			pw.cleanup = append(pw.cleanup, p)
			held++
		}
	}
	if held > 0 {
		select {
		case pw.cleanupReady <- struct{}{}:
		default:
		}
	}
	return held
}

func (pw *patchWriter) takeCleanup() []byte {
	pw.cleanupMu.Lock()
	patches := pw.cleanup
	pw.cleanup = nil
	pw.cleanupMu.Unlock()

	if len(patches) == 0 {
		return nil
	}
	msg, err := json.Marshal(patchMessage{Patches: patches})
	if err != nil {
		slog.Error("Failed to encode patches", "error", err)
		return nil
	}
	if pw.metrics != nil {
		pw.metrics.PatchesSent.Add(float64(len(patches)))
	}
	return msg
}

func (pw *patchWriter) run() {
	ticker := pw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer pw.wg.Done()

	for {
		select {
		case msg := <-pw.sendChannel:
			pw.updateWriteDeadline()
			if err := pw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-pw.cleanupReady:
			msg := pw.takeCleanup()
			if msg == nil {
				continue
			}
			pw.updateWriteDeadline()
			if err := pw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			pw.updateWriteDeadline()
			if err := pw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-pw.doneChannel:
			return
		}
	}
}

// stop sends a close frame and closes the connection once the run goroutine
// has exited, so the two never write concurrently.
func (pw *patchWriter) stop(reason string) {
	pw.stopOnce.Do(func() {
		close(pw.doneChannel)
		pw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		pw.updateWriteDeadline()
		_ = pw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = pw.connection.Close()
	})
}

func (pw *patchWriter) configurePongHandler() {
	pw.updateReadDeadline()
	pw.connection.SetPongHandler(func(string) error {
		pw.updateReadDeadline()
		return nil
	})
}

func (pw *patchWriter) updateWriteDeadline() {
	_ = pw.connection.SetWriteDeadline(time.Now().Add(writeDeadline))
}

func (pw *patchWriter) updateReadDeadline() {
	_ = pw.connection.SetReadDeadline(time.Now().Add(pongDeadline))
}
