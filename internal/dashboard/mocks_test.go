package dashboard

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/domain"
	"github.com/OccupiedNine220/radiovecher/internal/view"
	"github.com/stretchr/testify/require"
)

// --- Bot API ---

type mockBotAPI struct {
	mu    sync.Mutex
	calls []string

	listServersFn  func(ctx context.Context) ([]domain.ServerSummary, error)
	recentOrdersFn func(ctx context.Context) ([]domain.Order, error)
	playerStateFn  func(ctx context.Context, serverID string) (*domain.PlayerState, error)
	// commandFn answers every POST; name is the method name.
	commandFn func(ctx context.Context, name, serverID string, arg any) (*domain.CommandResult, error)
}

func (m *mockBotAPI) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockBotAPI) callCount(names ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if len(names) == 0 || slices.Contains(names, c) {
			n++
		}
	}
	return n
}

var commandMethods = []string{"Pause", "Resume", "Skip", "SwitchToRadio", "SwitchStation", "SetVolume", "Enqueue", "RemoveFromQueue"}

func (m *mockBotAPI) ListServers(ctx context.Context) ([]domain.ServerSummary, error) {
	m.record("ListServers")
	if m.listServersFn != nil {
		return m.listServersFn(ctx)
	}
	return nil, nil
}

func (m *mockBotAPI) ListRadios(context.Context) ([]domain.RadioStation, error) {
	m.record("ListRadios")
	return nil, nil
}

func (m *mockBotAPI) RecentOrders(ctx context.Context) ([]domain.Order, error) {
	m.record("RecentOrders")
	if m.recentOrdersFn != nil {
		return m.recentOrdersFn(ctx)
	}
	return nil, nil
}

func (m *mockBotAPI) PlayerState(ctx context.Context, serverID string) (*domain.PlayerState, error) {
	m.record("PlayerState")
	if m.playerStateFn != nil {
		return m.playerStateFn(ctx, serverID)
	}
	return &domain.PlayerState{Connected: false}, nil
}

func (m *mockBotAPI) command(ctx context.Context, name, serverID string, arg any) (*domain.CommandResult, error) {
	m.record(name)
	if m.commandFn != nil {
		return m.commandFn(ctx, name, serverID, arg)
	}
	return &domain.CommandResult{Success: true}, nil
}

func (m *mockBotAPI) Pause(ctx context.Context, id string) (*domain.CommandResult, error) {
	return m.command(ctx, "Pause", id, nil)
}

func (m *mockBotAPI) Resume(ctx context.Context, id string) (*domain.CommandResult, error) {
	return m.command(ctx, "Resume", id, nil)
}

func (m *mockBotAPI) Skip(ctx context.Context, id string) (*domain.CommandResult, error) {
	return m.command(ctx, "Skip", id, nil)
}

func (m *mockBotAPI) SwitchToRadio(ctx context.Context, id string) (*domain.CommandResult, error) {
	return m.command(ctx, "SwitchToRadio", id, nil)
}

func (m *mockBotAPI) SwitchStation(ctx context.Context, id, station string) (*domain.CommandResult, error) {
	return m.command(ctx, "SwitchStation", id, station)
}

func (m *mockBotAPI) SetVolume(ctx context.Context, id string, volume int) (*domain.CommandResult, error) {
	return m.command(ctx, "SetVolume", id, volume)
}

func (m *mockBotAPI) Enqueue(ctx context.Context, id, query string) (*domain.CommandResult, error) {
	return m.command(ctx, "Enqueue", id, query)
}

func (m *mockBotAPI) RemoveFromQueue(ctx context.Context, id string, index int) (*domain.CommandResult, error) {
	return m.command(ctx, "RemoveFromQueue", id, index)
}

// --- Radio source ---

type mockRadios struct {
	listRadiosFn func(ctx context.Context) ([]domain.RadioStation, error)
}

func (m *mockRadios) ListRadios(ctx context.Context) ([]domain.RadioStation, error) {
	if m.listRadiosFn != nil {
		return m.listRadiosFn(ctx)
	}
	return []domain.RadioStation{{Key: "jazz", Name: "Jazz FM"}}, nil
}

// --- Hub ---

type mockHub struct {
	mu   sync.Mutex
	subs []domain.PushSubscriber
}

func (h *mockHub) Subscribe(sub domain.PushSubscriber) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, sub)
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.subs = slices.DeleteFunc(h.subs, func(s domain.PushSubscriber) bool { return s == sub })
	}
}

func (h *mockHub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// --- Patch sink ---

type patchRecorder struct {
	mu      sync.Mutex
	patches []view.Patch
}

func (r *patchRecorder) sink(p []view.Patch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches = append(r.patches, p...)
}

func (r *patchRecorder) all() []view.Patch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]view.Patch(nil), r.patches...)
}

func (r *patchRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches = nil
}

// find returns the last patch for target whose HTML or text contains substr.
func (r *patchRecorder) find(op view.Op, target, substr string) (view.Patch, bool) {
	patches := r.all()
	for i := len(patches) - 1; i >= 0; i-- {
		p := patches[i]
		if p.Op == op && p.Target == target && strings.Contains(p.HTML+p.Text, substr) {
			return p, true
		}
	}
	return view.Patch{}, false
}

func (r *patchRecorder) waitFor(t *testing.T, op view.Op, target, substr string) view.Patch {
	t.Helper()
	var found view.Patch
	require.Eventually(t, func() bool {
		p, ok := r.find(op, target, substr)
		found = p
		return ok
	}, time.Second, time.Millisecond, "no %s patch on %s containing %q", op, target, substr)
	return found
}
