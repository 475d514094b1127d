package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/OccupiedNine220/radiovecher/internal/domain"
	"github.com/OccupiedNine220/radiovecher/web"
)

// Page names served by the HTTP layer.
const (
	PageIndex = "index.html"
	PageQueue = "queue.html"
)

// PageData is the model of a page shell.
type PageData struct {
	Title    string
	ServerID string
}

// Renderer executes the embedded templates. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"duration": FormatDuration,
		"inc":      func(i int) int { return i + 1 },
		"initial":  initial,
	}).ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page writes a full page shell.
func (r *Renderer) Page(w io.Writer, name string, data PageData) error {
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render page %s: %w", name, err)
	}
	return nil
}

func (r *Renderer) fragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) replace(target, name string, data any) ([]Patch, error) {
	html, err := r.fragment(name, data)
	if err != nil {
		return nil, err
	}
	return []Patch{{Op: OpReplace, Target: target, HTML: html}}, nil
}

// ServerList renders one link per server, or the empty state.
func (r *Renderer) ServerList(servers []domain.ServerSummary) ([]Patch, error) {
	return r.replace(ServerList, "server_list", servers)
}

// Queue updates the counter and either the row list or the empty state.
func (r *Renderer) Queue(entries []domain.QueueEntry) ([]Patch, error) {
	count := Patch{Op: OpText, Target: QueueCount, Text: strconv.Itoa(len(entries))}

	if len(entries) == 0 {
		return []Patch{
			count,
			{Op: OpReplace, Target: QueueList},
			{Op: OpHide, Target: QueueList},
			{Op: OpShow, Target: EmptyQueue},
		}, nil
	}

	html, err := r.fragment("queue_rows", entries)
	if err != nil {
		return nil, err
	}
	return []Patch{
		count,
		{Op: OpReplace, Target: QueueList, HTML: html},
		{Op: OpShow, Target: QueueList},
		{Op: OpHide, Target: EmptyQueue},
	}, nil
}

type playerData struct {
	Track     *domain.NowPlaying
	IsPlaying bool
}

// NowPlaying renders the player panel: a placeholder when np is nil, else the
// radio or track layout with the play/pause icon matching isPlaying.
func (r *Renderer) NowPlaying(np *domain.NowPlaying, isPlaying bool) ([]Patch, error) {
	switch {
	case np == nil:
		return r.replace(PlayerArea, "player_disconnected", nil)
	case np.IsLiveRadio:
		return r.replace(PlayerArea, "player_radio", playerData{Track: np, IsPlaying: isPlaying})
	default:
		return r.replace(PlayerArea, "player_track", playerData{Track: np, IsPlaying: isPlaying})
	}
}

// PlayPauseIcon re-renders only the play/pause button.
func (r *Renderer) PlayPauseIcon(isPlaying bool) ([]Patch, error) {
	return r.replace(PlayPauseButton, "play_pause_icon", isPlaying)
}

func (r *Renderer) Radios(radios []domain.RadioStation) ([]Patch, error) {
	return r.replace(RadioStations, "radio_list", radios)
}

func (r *Renderer) RadiosFailed() ([]Patch, error) {
	return r.replace(RadioStations, "radio_error", nil)
}

// Orders renders orders in the order given; the bot already sends newest first.
func (r *Renderer) Orders(orders []domain.Order) ([]Patch, error) {
	return r.replace(OrdersList, "orders_list", orders)
}

func (r *Renderer) OrdersFailed() ([]Patch, error) {
	return r.replace(OrdersList, "orders_error", nil)
}

// Toast renders a toast to append to the toast container.
func (r *Renderer) Toast(t Toast) (Patch, error) {
	html, err := r.fragment("toast", t)
	if err != nil {
		return Patch{}, err
	}
	return Patch{Op: OpAppend, Target: ToastContainer, HTML: html}, nil
}
