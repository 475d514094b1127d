package domain

import "errors"

var (
	ErrNoActiveServer = errors.New("no active server")
	ErrInvalidCommand = errors.New("invalid command")
	ErrUnknownAction  = errors.New("unknown action")
)
