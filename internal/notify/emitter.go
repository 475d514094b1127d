// Package notify shows transient toasts on a page.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/internal/view"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	VisibleFor = 3000 * time.Millisecond
	FadeFor    = 300 * time.Millisecond
)

type toastRenderer interface {
	Toast(t view.Toast) (view.Patch, error)
}

// Sink receives patches. It is called with the emitter's lock held and from
// timer goroutines, so it must not block or call back into the emitter.
type Sink func(patches []view.Patch)

type toast struct {
	timer  clockwork.Timer
	fading bool
}

// Emitter appends toasts to the toast container and removes them after
// VisibleFor plus FadeFor. Toasts coexist freely; nothing is deduplicated.
type Emitter struct {
	renderer toastRenderer
	sink     Sink
	clock    clockwork.Clock
	metrics  *metrics.CommandMetrics

	mu     sync.Mutex
	toasts map[string]*toast
	closed bool
}

// NewEmitter creates an emitter. m may be nil.
func NewEmitter(renderer toastRenderer, sink Sink, clock clockwork.Clock, m *metrics.CommandMetrics) *Emitter {
	return &Emitter{
		renderer: renderer,
		sink:     sink,
		clock:    clock,
		metrics:  m,
		toasts:   make(map[string]*toast),
	}
}

// Show displays a toast and returns its element id, or "" if nothing was shown.
func (e *Emitter) Show(kind view.ToastKind, message string) string {
	id := "toast-" + uuid.NewString()
	patch, err := e.renderer.Toast(view.Toast{ID: id, Kind: kind, Message: message})
	if err != nil {
		slog.Error("Failed to render toast", "error", err)
		return ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ""
	}

	e.toasts[id] = &toast{timer: e.clock.AfterFunc(VisibleFor, func() { e.expire(id) })}
	e.sink([]view.Patch{patch})

	if e.metrics != nil {
		e.metrics.ToastsShown.WithLabelValues(string(kind)).Inc()
	}
	return id
}

// Dismiss starts the fade-out of a visible toast right away. Unknown and
// already fading ids are ignored.
func (e *Emitter) Dismiss(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.toasts[id]
	if !ok || t.fading {
		return
	}
	t.timer.Stop()
	e.fadeLocked(id, t)
}

// Close stops every pending timer. Later calls to Show are no-ops.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	for id, t := range e.toasts {
		t.timer.Stop()
		delete(e.toasts, id)
	}
}

// Len returns the number of toasts still on the page.
func (e *Emitter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.toasts)
}

func (e *Emitter) expire(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.toasts[id]
	if !ok || t.fading || e.closed {
		return
	}
	e.fadeLocked(id, t)
}

func (e *Emitter) fadeLocked(id string, t *toast) {
	t.fading = true
	e.sink([]view.Patch{{Op: view.OpFade, Target: id}})
	t.timer = e.clock.AfterFunc(FadeFor, func() { e.remove(id) })
}

func (e *Emitter) remove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.toasts[id]; !ok || e.closed {
		return
	}
	delete(e.toasts, id)
	e.sink([]view.Patch{{Op: view.OpRemove, Target: id}})
}
