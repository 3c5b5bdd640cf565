package server

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"muuzah/internal/engine"
)

const maxNameLen = 32

// GeneratePlayerID creates a unique player ID.
func GeneratePlayerID() string {
	return uuid.NewString()
}

// identityFromQuery validates the identity a client connects with. A missing
// name falls back to a short form of the ID.
func identityFromQuery(id, name string) (engine.Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return engine.Identity{}, errors.New("missing player parameter")
	}
	if len(id) > 64 {
		return engine.Identity{}, errors.New("player id too long")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		short := id
		if len(short) > 8 {
			short = short[:8]
		}
		name = "player-" + short
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		name = string([]rune(name)[:maxNameLen])
	}
	return engine.Identity{ID: id, Name: name}, nil
}
