package domain

import (
	"encoding/json"
	"fmt"
)

const sourceStream = "stream"

// QueueEntry is one pending track. Queues are rebuilt wholesale on every update.
type QueueEntry struct {
	Position   int
	Title      string
	Artist     string
	Author     string
	Thumbnail  string
	Source     string
	DurationMs int64
}

// DisplayAuthor prefers the uploader/author field and falls back to the artist.
func (q QueueEntry) DisplayAuthor() string {
	if q.Author != "" {
		return q.Author
	}
	return q.Artist
}

// NowPlaying is the active track or radio stream of one server.
type NowPlaying struct {
	Title       string
	Artist      string
	Author      string
	Thumbnail   string
	Source      string
	DurationMs  int64
	IsLiveRadio bool
}

func (n NowPlaying) DisplayArtist() string {
	if n.Artist != "" {
		return n.Artist
	}
	return n.Author
}

type trackWire struct {
	ID        *int     `json:"id"`
	Title     string   `json:"title"`
	Artist    string   `json:"artist"`
	Author    string   `json:"author"`
	Thumbnail *string  `json:"thumbnail"`
	Source    string   `json:"source"`
	Length    *float64 `json:"length"`
	Duration  *float64 `json:"duration"`
	IsRadio   bool     `json:"is_radio"`
}

func (w trackWire) durationMs() int64 {
	switch {
	case w.Length != nil && *w.Length > 0:
		return int64(*w.Length)
	case w.Duration != nil && *w.Duration > 0:
		return int64(*w.Duration)
	default:
		return 0
	}
}

func (w trackWire) thumbnail() string {
	if w.Thumbnail == nil {
		return ""
	}
	return *w.Thumbnail
}

func (q *QueueEntry) UnmarshalJSON(data []byte) error {
	var w trackWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode queue entry: %w", err)
	}
	*q = QueueEntry{
		Title:      w.Title,
		Artist:     w.Artist,
		Author:     w.Author,
		Thumbnail:  w.thumbnail(),
		Source:     w.Source,
		DurationMs: w.durationMs(),
	}
	if w.ID != nil {
		q.Position = *w.ID
	}
	return nil
}

func (n *NowPlaying) UnmarshalJSON(data []byte) error {
	var w trackWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode now playing: %w", err)
	}
	*n = NowPlaying{
		Title:       w.Title,
		Artist:      w.Artist,
		Author:      w.Author,
		Thumbnail:   w.thumbnail(),
		Source:      w.Source,
		DurationMs:  w.durationMs(),
		IsLiveRadio: w.IsRadio || w.Source == sourceStream,
	}
	return nil
}
