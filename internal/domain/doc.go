// Package domain defines the dashboard's data model and the contracts of its collaborators.
//
// Concept-oriented files (server.go, track.go, catalog.go, player.go, push.go) hold the
// payload types received from the bot and the interfaces implemented by adapters.
// The JSON decoding here tolerates the loose shapes the bot emits (numbers as ids,
// author vs. artist, length in float milliseconds). No I/O - just contracts.
package domain
