// internal/export/snapshot.go

// Package export produces plain-data projections of a game for external
// consumers (spreadsheet adapters, JSON dumps). Everything here is a deep
// copy: the snapshot stays valid after the live game moves on, and the
// export path never holds the game lock across I/O.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/quizbowl/qbscore/internal/game"
	"github.com/quizbowl/qbscore/internal/models"
)

// Snapshot is the flattened read-only view of a game: ordered cycles,
// ordered players, the packet, and the derived values the scoresheet
// collaborators need. No live references are retained.
type Snapshot struct {
	ID         string          `json:"id"`
	TeamNames  []string        `json:"teamNames"`
	Players    []models.Player `json:"players"`
	Packet     models.Packet   `json:"packet"`
	Cycles     []game.Cycle    `json:"cycles"`
	Scores     [][]int         `json:"scores"`
	FinalScore []int           `json:"finalScore"`
	Format     models.GameFormat `json:"gameFormat"`
}

// Flatten deep-copies the game into a Snapshot. Call with the live game's
// lock held; the result can be used without it.
func Flatten(g *game.GameState) *Snapshot {
	snap := &Snapshot{
		ID:         g.ID.String(),
		TeamNames:  g.TeamNames(),
		Packet:     clonePacket(g.Packet),
		Scores:     g.Scores(),
		FinalScore: g.FinalScore(),
		Format:     cloneFormat(g.Format),
	}
	for _, p := range g.Players {
		snap.Players = append(snap.Players, *p)
	}
	for _, c := range g.Cycles {
		snap.Cycles = append(snap.Cycles, cloneCycle(c))
	}
	return snap
}

// Unflatten rebuilds a live GameState from a snapshot, for offline tooling
// that operates on saved game files.
func Unflatten(s *Snapshot) (*game.GameState, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return nil, fmt.Errorf("snapshot has invalid game id %q: %w", s.ID, err)
	}
	g := &game.GameState{
		ID:     id,
		Packet: clonePacket(s.Packet),
		Format: cloneFormat(s.Format),
	}
	for i := range s.Players {
		p := s.Players[i]
		g.Players = append(g.Players, &p)
	}
	for i := range s.Cycles {
		c := cloneCycle(&s.Cycles[i])
		g.Cycles = append(g.Cycles, &c)
	}
	return g, nil
}

// WriteJSON encodes the snapshot with stable indentation.
func (s *Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// ReadSnapshot decodes a snapshot produced by WriteJSON.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

func cloneCycle(c *game.Cycle) game.Cycle {
	out := game.Cycle{
		ThrownOutTossups: append([]game.ThrownOutQuestion(nil), c.ThrownOutTossups...),
		ThrownOutBonuses: append([]game.ThrownOutQuestion(nil), c.ThrownOutBonuses...),
		WrongBuzzes:      append([]game.TossupAnswerEvent(nil), c.WrongBuzzes...),
		PlayerJoins:      append([]models.Player(nil), c.PlayerJoins...),
		PlayerLeaves:     append([]models.Player(nil), c.PlayerLeaves...),
		Subs:             append([]game.Substitution(nil), c.Subs...),
		TossupProtests:   append([]game.TossupProtest(nil), c.TossupProtests...),
		BonusProtests:    append([]game.BonusProtest(nil), c.BonusProtests...),
	}
	if c.CorrectBuzz != nil {
		buzz := *c.CorrectBuzz
		out.CorrectBuzz = &buzz
	}
	if c.BonusAnswer != nil {
		answer := *c.BonusAnswer
		answer.Parts = append([]game.BonusPartAnswer(nil), c.BonusAnswer.Parts...)
		out.BonusAnswer = &answer
	}
	return out
}

func clonePacket(p models.Packet) models.Packet {
	out := p
	out.Tossups = append([]models.Tossup(nil), p.Tossups...)
	out.Bonuses = make([]models.Bonus, 0, len(p.Bonuses))
	for _, b := range p.Bonuses {
		bonus := b
		bonus.Parts = append([]models.BonusPart(nil), b.Parts...)
		out.Bonuses = append(out.Bonuses, bonus)
	}
	return out
}

func cloneFormat(f models.GameFormat) models.GameFormat {
	out := f
	out.Powers = append([]models.Power(nil), f.Powers...)
	out.PronunciationGuideMarkers = append([]string(nil), f.PronunciationGuideMarkers...)
	return out
}
