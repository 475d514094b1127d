package botapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/OccupiedNine220/radiovecher/internal/domain"
)

// decodeServers accepts {"guilds": [...]}, {"guilds": {id: summary}} or a bare
// {id: summary} mapping, and returns servers in ascending numeric id order.
func decodeServers(data []byte) ([]domain.ServerSummary, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode guilds: %w", err)
	}

	raw, ok := top["guilds"]
	if !ok {
		raw = data
	}
	raw = bytes.TrimSpace(raw)

	var servers []domain.ServerSummary
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil, nil
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &servers); err != nil {
			return nil, fmt.Errorf("decode guild list: %w", err)
		}
	case raw[0] == '{':
		var byID map[string]domain.ServerSummary
		if err := json.Unmarshal(raw, &byID); err != nil {
			return nil, fmt.Errorf("decode guild mapping: %w", err)
		}
		for id, s := range byID {
			if s.ID == "" {
				s.ID = id
			}
			servers = append(servers, s)
		}
	default:
		return nil, fmt.Errorf("decode guilds: unexpected %q", raw[:1])
	}

	slices.SortStableFunc(servers, func(a, b domain.ServerSummary) int {
		return compareIDs(a.ID, b.ID)
	})
	return servers, nil
}

// compareIDs orders decimal ids numerically without parsing them; snowflakes
// overflow float64. Non-numeric ids sort after numeric ones.
func compareIDs(a, b string) int {
	an, bn := isDigits(a), isDigits(b)
	switch {
	case an && !bn:
		return -1
	case !an && bn:
		return 1
	case !an && !bn:
		return strings.Compare(a, b)
	}
	a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// decodeRadios reads {"radios": {key: station}} keeping the document order of keys.
func decodeRadios(data []byte) ([]domain.RadioStation, error) {
	var resp struct {
		Radios json.RawMessage `json:"radios"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode radios: %w", err)
	}
	raw := bytes.TrimSpace(resp.Radios)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode radios: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode radios: expected object, got %v", tok)
	}

	var radios []domain.RadioStation
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode radio key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode radio key: unexpected %v", tok)
		}

		var station domain.RadioStation
		if err := dec.Decode(&station); err != nil {
			return nil, fmt.Errorf("decode radio %q: %w", key, err)
		}
		station.Key = key
		radios = append(radios, station)
	}
	return radios, nil
}
