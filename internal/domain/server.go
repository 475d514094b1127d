package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// connectedLabels are the status strings the bot uses for a joined voice channel.
var connectedLabels = map[string]struct{}{
	"connected": {},
	"Подключен": {},
}

// ServerSummary is one bot server (guild) as listed on the landing page.
type ServerSummary struct {
	ID          string
	Name        string
	Icon        string
	Status      string
	Channel     string
	Connected   bool
	MemberCount int
}

// IsConnected reports whether the bot currently sits in a voice channel of this server.
func (s ServerSummary) IsConnected() bool {
	if s.Connected {
		return true
	}
	_, ok := connectedLabels[s.Status]
	return ok
}

// StatusLabel is the human-readable connection status.
func (s ServerSummary) StatusLabel() string {
	if s.Status != "" {
		return s.Status
	}
	if s.Connected {
		return "Connected"
	}
	return "Not connected"
}

func (s *ServerSummary) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID          json.RawMessage `json:"id"`
		Name        string          `json:"name"`
		Icon        *string         `json:"icon"`
		Status      string          `json:"status"`
		Channel     *string         `json:"channel"`
		Connected   bool            `json:"connected"`
		MemberCount int             `json:"member_count"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode server summary: %w", err)
	}

	id, err := DecodeID(aux.ID)
	if err != nil {
		return err
	}

	*s = ServerSummary{
		ID:          id,
		Name:        aux.Name,
		Status:      aux.Status,
		Connected:   aux.Connected,
		MemberCount: aux.MemberCount,
	}
	if aux.Icon != nil {
		s.Icon = *aux.Icon
	}
	if aux.Channel != nil {
		s.Channel = *aux.Channel
	}
	return nil
}

// DecodeID accepts a server id encoded either as a JSON string or a JSON number.
// Numbers are kept digit-for-digit; Discord snowflakes exceed float64 precision.
func DecodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode id: %w", err)
	}
	return n.String(), nil
}
