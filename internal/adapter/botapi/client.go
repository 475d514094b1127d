// Package botapi is the HTTP client for the music bot's REST API.
package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/internal/domain"
	apperrors "github.com/OccupiedNine220/radiovecher/internal/platform/errors"
)

const maxBodyBytes = 1 << 20

// Client talks to the bot backend. A reply with success=false is returned as a
// *domain.CommandResult; only transport and decode failures become errors.
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.BotAPIMetrics
}

var _ domain.BotAPI = (*Client)(nil)

// NewClient creates a client for the API rooted at baseURL. m may be nil.
func NewClient(baseURL string, timeout time.Duration, m *metrics.BotAPIMetrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		metrics: m,
	}
}

func playerPath(serverID string, suffix ...string) string {
	p := "/api/player/" + url.PathEscape(serverID)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func (c *Client) ListServers(ctx context.Context) ([]domain.ServerSummary, error) {
	data, err := c.get(ctx, "guilds", "/api/guilds")
	if err != nil {
		return nil, err
	}
	servers, err := decodeServers(data)
	if err != nil {
		c.record("guilds", metrics.OutcomeError)
		return nil, apperrors.ExternalError("decode server list", err)
	}
	return servers, nil
}

func (c *Client) ListRadios(ctx context.Context) ([]domain.RadioStation, error) {
	data, err := c.get(ctx, "radios", "/api/radios")
	if err != nil {
		return nil, err
	}
	radios, err := decodeRadios(data)
	if err != nil {
		c.record("radios", metrics.OutcomeError)
		return nil, apperrors.ExternalError("decode radio list", err)
	}
	return radios, nil
}

func (c *Client) RecentOrders(ctx context.Context) ([]domain.Order, error) {
	data, err := c.get(ctx, "orders", "/api/orders")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Success *bool          `json:"success"`
		Orders  []domain.Order `json:"orders"`
		Error   string         `json:"error"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		c.record("orders", metrics.OutcomeError)
		return nil, apperrors.ExternalError("decode orders", err)
	}
	if resp.Success != nil && !*resp.Success {
		c.record("orders", metrics.OutcomeRejected)
		return nil, apperrors.RejectedError(fallback(resp.Error, "orders unavailable"))
	}
	return resp.Orders, nil
}

func (c *Client) PlayerState(ctx context.Context, serverID string) (*domain.PlayerState, error) {
	data, err := c.get(ctx, "player", playerPath(serverID))
	if err != nil {
		return nil, err
	}
	var state domain.PlayerState
	if err := json.Unmarshal(data, &state); err != nil {
		c.record("player", metrics.OutcomeError)
		return nil, apperrors.ExternalError("decode player state", err).WithContext("server_id", serverID)
	}
	return &state, nil
}

func (c *Client) Pause(ctx context.Context, serverID string) (*domain.CommandResult, error) {
	return c.post(ctx, "pause", playerPath(serverID, "pause"), nil)
}

func (c *Client) Resume(ctx context.Context, serverID string) (*domain.CommandResult, error) {
	return c.post(ctx, "resume", playerPath(serverID, "resume"), nil)
}

func (c *Client) Skip(ctx context.Context, serverID string) (*domain.CommandResult, error) {
	return c.post(ctx, "skip", playerPath(serverID, "skip"), nil)
}

func (c *Client) SwitchToRadio(ctx context.Context, serverID string) (*domain.CommandResult, error) {
	return c.post(ctx, "radio", playerPath(serverID, "radio"), nil)
}

func (c *Client) SwitchStation(ctx context.Context, serverID, station string) (*domain.CommandResult, error) {
	return c.post(ctx, "switch_radio", playerPath(serverID, "switch_radio"), map[string]string{"station": station})
}

func (c *Client) SetVolume(ctx context.Context, serverID string, volume int) (*domain.CommandResult, error) {
	return c.post(ctx, "volume", playerPath(serverID, "volume"), map[string]int{"volume": volume})
}

func (c *Client) Enqueue(ctx context.Context, serverID, query string) (*domain.CommandResult, error) {
	return c.post(ctx, "play", playerPath(serverID, "play"), map[string]string{"query": query})
}

func (c *Client) RemoveFromQueue(ctx context.Context, serverID string, index int) (*domain.CommandResult, error) {
	return c.post(ctx, "remove", playerPath(serverID, "queue", strconv.Itoa(index), "remove"), nil)
}

// get fetches path and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, apperrors.InternalError("build request", err)
	}
	req.Header.Set("Accept", "application/json")

	status, data, err := c.do(req, endpoint)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		c.record(endpoint, metrics.OutcomeError)
		return nil, apperrors.ExternalError(fmt.Sprintf("bot api returned status %d", status), errorFromBody(data)).
			WithContext("endpoint", endpoint)
	}
	c.record(endpoint, metrics.OutcomeOK)
	return data, nil
}

// post sends a command. The reply body is decoded whatever the HTTP status:
// the bot reports refusals as {"error": "..."} with a 4xx status.
func (c *Client) post(ctx context.Context, endpoint, path string, body any) (*domain.CommandResult, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.InternalError("encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.InternalError("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	status, data, err := c.do(req, endpoint)
	if err != nil {
		return nil, err
	}

	var result domain.CommandResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.record(endpoint, metrics.OutcomeError)
		return nil, apperrors.ExternalError(fmt.Sprintf("undecodable reply (status %d)", status), err).
			WithContext("endpoint", endpoint)
	}

	if result.Success {
		c.record(endpoint, metrics.OutcomeOK)
	} else {
		c.record(endpoint, metrics.OutcomeRejected)
	}
	return &result, nil
}

func (c *Client) do(req *http.Request, endpoint string) (int, []byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if c.metrics != nil {
		c.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.record(endpoint, metrics.OutcomeError)
		return 0, nil, apperrors.ExternalError("bot api unreachable", err).WithContext("endpoint", endpoint)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.record(endpoint, metrics.OutcomeError)
		return 0, nil, apperrors.ExternalError("read reply", err).WithContext("endpoint", endpoint)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) record(endpoint, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func errorFromBody(data []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("%s", body.Error)
	}
	return nil
}

func fallback(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
