// internal/game/stats.go
package game

import (
	"github.com/google/uuid"

	"github.com/quizbowl/qbscore/internal/models"
)

// StatLine is one player's accumulated tossup statistics over the playable
// prefix of the game. AnswerCounts maps a derived buzz value (power value,
// ten, zero, neg value) to the number of buzzes scored at that value.
type StatLine struct {
	Player       *models.Player
	TossupsHeard int
	AnswerCounts map[int]int
	Points       int
}

// StatLines computes per-player stat lines for one team. Tossups heard come
// from replaying the lineup cycle by cycle; buzz outcomes apply the neg rule
// uniformly, so a wrong buzz after the first neg of a cycle counts as zero.
func (g *GameState) StatLines(teamName string) []*StatLine {
	lines := make([]*StatLine, 0, 4)
	byID := make(map[uuid.UUID]*StatLine)
	lineFor := func(p *models.Player) *StatLine {
		if line, ok := byID[p.ID]; ok {
			return line
		}
		line := &StatLine{Player: p, AnswerCounts: make(map[int]int)}
		byID[p.ID] = line
		lines = append(lines, line)
		return line
	}
	// Seed the full team roster so benched players still get a zero line.
	for _, p := range g.Players {
		if p.TeamName == teamName {
			lineFor(p)
		}
	}

	value := g.BuzzValuer()
	for i, c := range g.PlayableCycles() {
		for _, p := range g.GetActivePlayers(teamName, i) {
			lineFor(p).TossupsHeard++
		}

		var firstWrong *TossupAnswerEvent
		if g.Format.NegValue != 0 {
			firstWrong = c.FirstWrongBuzz(value)
		}
		for _, b := range c.WrongBuzzes {
			if b.TeamName != teamName {
				continue
			}
			points := 0
			if firstWrong != nil && b.Seq == firstWrong.Seq {
				points = value(b, false)
			}
			player := g.FindPlayer(b.TeamName, b.PlayerName)
			if player == nil {
				continue
			}
			line := lineFor(player)
			line.AnswerCounts[points]++
			line.Points += points
		}
		if b := c.CorrectBuzz; b != nil && b.TeamName == teamName {
			if player := g.FindPlayer(b.TeamName, b.PlayerName); player != nil {
				points := value(*b, true)
				line := lineFor(player)
				line.AnswerCounts[points]++
				line.Points += points
			}
		}
	}
	return lines
}
