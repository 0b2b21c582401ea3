// internal/models/player.go
package models

import "github.com/google/uuid"

// Player is one roster entry. ID is assigned once at roster insertion and is
// the identity every cycle event references; (TeamName, Name) is the
// human-facing key used by the interchange format and for rename matching.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	TeamName  string    `json:"teamName"`
	IsStarter bool      `json:"isStarter"`
}

// NewPlayer mints a roster entry with a fresh ID.
func NewPlayer(name, teamName string, isStarter bool) *Player {
	return &Player{
		ID:        uuid.New(),
		Name:      name,
		TeamName:  teamName,
		IsStarter: isStarter,
	}
}

// Matches reports whether the given (team, name) pair refers to this player.
func (p *Player) Matches(teamName, name string) bool {
	return p.TeamName == teamName && p.Name == name
}
