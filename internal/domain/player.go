package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// PlayerState is the full server-scoped state fetched after a mutating command.
type PlayerState struct {
	Status       string
	Connected    bool
	CurrentTrack *NowPlaying
	Queue        []QueueEntry
	RadioMode    bool
	Volume       int
}

// NowPlaying returns the track to render, or nil when the bot is not in a voice channel.
func (p *PlayerState) NowPlaying() *NowPlaying {
	if p == nil || !p.Connected || p.CurrentTrack == nil {
		return nil
	}
	track := *p.CurrentTrack
	if p.RadioMode {
		track.IsLiveRadio = true
	}
	return &track
}

func (p *PlayerState) UnmarshalJSON(data []byte) error {
	var aux struct {
		Status       string       `json:"status"`
		Connected    bool         `json:"connected"`
		CurrentTrack *NowPlaying  `json:"current_track"`
		Queue        []QueueEntry `json:"queue"`
		RadioMode    bool         `json:"radio_mode"`
		Volume       float64      `json:"volume"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode player state: %w", err)
	}
	*p = PlayerState{
		Status:       aux.Status,
		Connected:    aux.Connected,
		CurrentTrack: aux.CurrentTrack,
		Queue:        aux.Queue,
		RadioMode:    aux.RadioMode,
		Volume:       int(aux.Volume),
	}
	return nil
}

// CommandResult is the bot's answer to a POST. Success is the only authoritative field.
type CommandResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	RadioName string `json:"radio_name,omitempty"`
}

// Reason returns the bot-provided explanation of a failure, or "".
func (r *CommandResult) Reason() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}

// BotAPI is the bot's REST surface. Transport failures are returned as errors;
// a reply with success=false is a result, not an error.
type BotAPI interface {
	ListServers(ctx context.Context) ([]ServerSummary, error)
	ListRadios(ctx context.Context) ([]RadioStation, error)
	RecentOrders(ctx context.Context) ([]Order, error)
	PlayerState(ctx context.Context, serverID string) (*PlayerState, error)

	Pause(ctx context.Context, serverID string) (*CommandResult, error)
	Resume(ctx context.Context, serverID string) (*CommandResult, error)
	Skip(ctx context.Context, serverID string) (*CommandResult, error)
	SwitchToRadio(ctx context.Context, serverID string) (*CommandResult, error)
	SwitchStation(ctx context.Context, serverID, station string) (*CommandResult, error)
	SetVolume(ctx context.Context, serverID string, volume int) (*CommandResult, error)
	Enqueue(ctx context.Context, serverID, query string) (*CommandResult, error)
	RemoveFromQueue(ctx context.Context, serverID string, index int) (*CommandResult, error)
}

// RadioSource lists radio stations; satisfied by BotAPI and by the catalog cache.
type RadioSource interface {
	ListRadios(ctx context.Context) ([]RadioStation, error)
}
