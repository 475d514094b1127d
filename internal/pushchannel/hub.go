// Package pushchannel keeps one Socket.IO connection to the bot and fans its
// push events out to every open page.
package pushchannel

import (
	"sync"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/internal/domain"
)

// Hub fans decoded push events out to subscribers. It implements
// domain.PushSubscriber so a Listener can publish straight into it.
type Hub struct {
	metrics *metrics.PushMetrics

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]domain.PushSubscriber
}

var _ domain.PushSubscriber = (*Hub)(nil)

// NewHub creates an empty hub. m may be nil.
func NewHub(m *metrics.PushMetrics) *Hub {
	return &Hub{metrics: m, subs: make(map[uint64]domain.PushSubscriber)}
}

// Subscribe registers sub and returns a function that removes it.
func (h *Hub) Subscribe(sub domain.PushSubscriber) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.updateGauge()
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.updateGauge()
			h.mu.Unlock()
		})
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) OnQueueUpdate(update domain.QueueUpdate) {
	for _, sub := range h.snapshot() {
		sub.OnQueueUpdate(update)
	}
}

func (h *Hub) OnNowPlayingUpdate(update domain.NowPlayingUpdate) {
	for _, sub := range h.snapshot() {
		sub.OnNowPlayingUpdate(update)
	}
}

func (h *Hub) snapshot() []domain.PushSubscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := make([]domain.PushSubscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	return subs
}

func (h *Hub) updateGauge() {
	if h.metrics != nil {
		h.metrics.Subscribers.Set(float64(len(h.subs)))
	}
}
