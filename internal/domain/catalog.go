package domain

import (
	"encoding/json"
	"fmt"
)

// RadioStation is one selectable stream. Key is what switch-station sends back.
type RadioStation struct {
	Key       string
	Name      string `json:"name"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
}

// Order is a display-only record of a requested track.
type Order struct {
	Title     string
	Thumbnail string
	Username  string
	Date      string
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var aux struct {
		Title     string `json:"title"`
		Thumbnail string `json:"thumbnail"`
		Username  string `json:"username"`
		Customer  string `json:"customer"`
		Date      string `json:"date"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode order: %w", err)
	}
	*o = Order{Title: aux.Title, Thumbnail: aux.Thumbnail, Username: aux.Username, Date: aux.Date}
	if o.Username == "" {
		o.Username = aux.Customer
	}
	return nil
}
