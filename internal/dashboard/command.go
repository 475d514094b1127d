package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/domain"
	"github.com/OccupiedNine220/radiovecher/internal/view"
)

type Action string

const (
	ActionPause         Action = "pause"
	ActionResume        Action = "resume"
	ActionToggle        Action = "toggle"
	ActionSkip          Action = "skip"
	ActionRadio         Action = "radio"
	ActionSwitchStation Action = "switch_station"
	ActionRemove        Action = "remove"
	ActionVolume        Action = "volume"
	ActionEnqueue       Action = "enqueue"
	ActionDismiss       Action = "dismiss"
)

// Command is one user action as sent by the browser. Index and Volume stay
// nil when the browser omits them or sends null.
type Command struct {
	Action  Action `json:"action"`
	Index   *int   `json:"index"`
	Station string `json:"station"`
	Volume  *int   `json:"volume"`
	Query   string `json:"query"`
	Toast   string `json:"toast"`
}

const (
	reloadDelay       = 1000 * time.Millisecond
	removeReloadDelay = 500 * time.Millisecond
)

type commandSpec struct {
	call     func(ctx context.Context, api domain.BotAPI, serverID string, cmd Command) (*domain.CommandResult, error)
	validate func(cmd Command) bool

	toastKind view.ToastKind
	success   func(cmd Command, res *domain.CommandResult) string
	fallback  string
	network   string

	// setPlaying, when non-nil, is the IsPlaying value after success.
	setPlaying *bool
	reload     time.Duration
}

func fixed(msg string) func(Command, *domain.CommandResult) string {
	return func(Command, *domain.CommandResult) string { return msg }
}

func ptr[T any](v T) *T { return &v }

var commandSpecs = map[Action]commandSpec{
	ActionPause: {
		call: func(ctx context.Context, api domain.BotAPI, id string, _ Command) (*domain.CommandResult, error) {
			return api.Pause(ctx, id)
		},
		toastKind:  view.ToastInfo,
		success:    fixed("Playback paused"),
		fallback:   "Failed to pause playback",
		network:    "Network error while pausing playback",
		setPlaying: ptr(false),
	},
	ActionResume: {
		call: func(ctx context.Context, api domain.BotAPI, id string, _ Command) (*domain.CommandResult, error) {
			return api.Resume(ctx, id)
		},
		toastKind:  view.ToastInfo,
		success:    fixed("Playback resumed"),
		fallback:   "Failed to resume playback",
		network:    "Network error while resuming playback",
		setPlaying: ptr(true),
	},
	ActionSkip: {
		call: func(ctx context.Context, api domain.BotAPI, id string, _ Command) (*domain.CommandResult, error) {
			return api.Skip(ctx, id)
		},
		toastKind: view.ToastInfo,
		success:   fixed("Track skipped"),
		fallback:  "Failed to skip track",
		network:   "Network error while skipping track",
	},
	ActionRadio: {
		call: func(ctx context.Context, api domain.BotAPI, id string, _ Command) (*domain.CommandResult, error) {
			return api.SwitchToRadio(ctx, id)
		},
		toastKind: view.ToastInfo,
		success:   fixed("Switched to radio"),
		fallback:  "Failed to switch to radio",
		network:   "Network error while switching to radio",
		reload:    reloadDelay,
	},
	ActionSwitchStation: {
		call: func(ctx context.Context, api domain.BotAPI, id string, cmd Command) (*domain.CommandResult, error) {
			return api.SwitchStation(ctx, id, cmd.Station)
		},
		validate:  func(cmd Command) bool { return strings.TrimSpace(cmd.Station) != "" },
		toastKind: view.ToastSuccess,
		success: func(cmd Command, res *domain.CommandResult) string {
			name := res.RadioName
			if name == "" {
				name = cmd.Station
			}
			return "Switched to station: " + name
		},
		fallback: "Failed to switch radio station",
		network:  "Network error while switching radio station",
		reload:   reloadDelay,
	},
	ActionRemove: {
		call: func(ctx context.Context, api domain.BotAPI, id string, cmd Command) (*domain.CommandResult, error) {
			return api.RemoveFromQueue(ctx, id, *cmd.Index)
		},
		validate:  func(cmd Command) bool { return cmd.Index != nil && *cmd.Index >= 0 },
		toastKind: view.ToastInfo,
		success:   fixed("Track removed from queue"),
		fallback:  "Failed to remove track from queue",
		network:   "Network error while removing track",
		reload:    removeReloadDelay,
	},
	ActionVolume: {
		call: func(ctx context.Context, api domain.BotAPI, id string, cmd Command) (*domain.CommandResult, error) {
			return api.SetVolume(ctx, id, *cmd.Volume)
		},
		validate:  func(cmd Command) bool { return cmd.Volume != nil && *cmd.Volume >= 0 && *cmd.Volume <= 100 },
		toastKind: view.ToastInfo,
		success: func(cmd Command, _ *domain.CommandResult) string {
			return fmt.Sprintf("Volume set: %d%%", *cmd.Volume)
		},
		fallback: "Failed to set volume",
		network:  "Network error while setting volume",
	},
	ActionEnqueue: {
		call: func(ctx context.Context, api domain.BotAPI, id string, cmd Command) (*domain.CommandResult, error) {
			return api.Enqueue(ctx, id, strings.TrimSpace(cmd.Query))
		},
		validate:  func(cmd Command) bool { return strings.TrimSpace(cmd.Query) != "" },
		toastKind: view.ToastSuccess,
		success:   fixed("Track added to queue"),
		fallback:  "Failed to add track to queue",
		network:   "Network error while adding track",
		reload:    reloadDelay,
	},
}

// resolve maps toggle onto pause or resume for the current playback flag.
func resolve(action Action, isPlaying bool) Action {
	if action != ActionToggle {
		return action
	}
	if isPlaying {
		return ActionPause
	}
	return ActionResume
}

// Known reports whether the browser may send a.
func (a Action) Known() bool {
	if a == ActionToggle || a == ActionDismiss {
		return true
	}
	_, ok := commandSpecs[a]
	return ok
}
