// internal/game/state.go
package game

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quizbowl/qbscore/internal/models"
)

// GameState is the aggregate for one live match: the packet being read, the
// roster, the per-slot cycle log, and the rule format. All derived state
// (scores, lineups, playable prefix) is recomputed from the cycle list on
// read; nothing derived is cached or stored.
//
// GameState is single-owner and not safe for concurrent use. The serving
// layer wraps each live game in its own mutex.
type GameState struct {
	ID      uuid.UUID         `json:"id"`
	Packet  models.Packet     `json:"packet"`
	Players []*models.Player  `json:"players"`
	Cycles  []*Cycle          `json:"cycles"`
	Format  models.GameFormat `json:"gameFormat"`
}

// NewGameState builds an empty game under the given format.
func NewGameState(format models.GameFormat) *GameState {
	return &GameState{
		ID:     uuid.New(),
		Format: format,
	}
}

// LoadPacket replaces the packet. Cycles are created lazily to match the
// packet's tossup count; existing cycles are never truncated, so a shorter
// replacement packet leaves recorded history intact.
func (g *GameState) LoadPacket(packet models.Packet) {
	g.Packet = packet
	for len(g.Cycles) < len(packet.Tossups) {
		g.Cycles = append(g.Cycles, &Cycle{})
	}
}

// SetGameFormat replaces the rule format mid-game. Buzz values are derived,
// so already-recorded buzzes are rescored retroactively under the new rules.
func (g *GameState) SetGameFormat(format models.GameFormat) error {
	if err := format.Validate(); err != nil {
		return fmt.Errorf("set game format: %w", err)
	}
	g.Format = format
	return nil
}

// AddNewPlayer appends a roster entry, rejecting duplicate (team, name)
// pairs and blank names.
func (g *GameState) AddNewPlayer(name, teamName string, isStarter bool) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("player name must not be empty")
	}
	if g.FindPlayer(teamName, name) != nil {
		return nil, fmt.Errorf("player %q already exists on team %q", name, teamName)
	}
	p := models.NewPlayer(name, teamName, isStarter)
	g.Players = append(g.Players, p)
	return p, nil
}

// RemoveNewPlayer deletes a roster entry added mid-game and purges every
// event referencing it from every cycle. Starters cannot be removed.
func (g *GameState) RemoveNewPlayer(teamName, name string) bool {
	for i, p := range g.Players {
		if !p.Matches(teamName, name) {
			continue
		}
		if p.IsStarter {
			return false
		}
		g.Players = append(g.Players[:i], g.Players[i+1:]...)
		for _, c := range g.Cycles {
			c.RemoveNewPlayerEvents(teamName, name)
		}
		return true
	}
	return false
}

// FindPlayer resolves a roster entry by (team, name), or nil.
func (g *GameState) FindPlayer(teamName, name string) *models.Player {
	for _, p := range g.Players {
		if p.Matches(teamName, name) {
			return p
		}
	}
	return nil
}

// TeamNames returns team names in first-seen roster order. The first team
// establishes column ordering and tie-break orientation downstream. The
// algorithm does not assume exactly two teams.
func (g *GameState) TeamNames() []string {
	seen := make(map[string]bool)
	names := make([]string, 0, 2)
	for _, p := range g.Players {
		if !seen[p.TeamName] {
			seen[p.TeamName] = true
			names = append(names, p.TeamName)
		}
	}
	return names
}

// GetTossupIndex maps a cycle index to the packet tossup actually read at
// that slot: thrown-out tossups consume extra packet questions without
// consuming cycles. Returns -1 when the packet is exhausted.
func (g *GameState) GetTossupIndex(cycleIndex int) int {
	index := cycleIndex
	for i := 0; i <= cycleIndex && i < len(g.Cycles); i++ {
		index += len(g.Cycles[i].ThrownOutTossups)
	}
	if index < 0 || index >= len(g.Packet.Tossups) {
		return -1
	}
	return index
}

// GetBonusIndex maps a cycle index to its packet bonus, accounting for
// thrown-out bonuses. Returns -1 when no bonus is available.
func (g *GameState) GetBonusIndex(cycleIndex int) int {
	index := cycleIndex
	for i := 0; i <= cycleIndex && i < len(g.Cycles); i++ {
		index += len(g.Cycles[i].ThrownOutBonuses)
	}
	if index < 0 || index >= len(g.Packet.Bonuses) {
		return -1
	}
	return index
}

// BuzzValuer returns the derived-value function for buzz events under the
// current packet and format.
func (g *GameState) BuzzValuer() BuzzValuer {
	return func(ev TossupAnswerEvent, isCorrect bool) int {
		if ev.TossupIndex < 0 || ev.TossupIndex >= len(g.Packet.Tossups) {
			return 0
		}
		tossup := &g.Packet.Tossups[ev.TossupIndex]
		return tossup.GetPointsAtPosition(&g.Format, ev.Position, isCorrect)
	}
}

// GetBuzzValue is the derived point value of a single buzz event.
func (g *GameState) GetBuzzValue(ev TossupAnswerEvent, isCorrect bool) int {
	return g.BuzzValuer()(ev, isCorrect)
}

// GetActivePlayers replays roster events through the given cycle index and
// returns the team's lineup at that point: starters, then per cycle the
// leaves, joins, and substitutions in that order. A roster event naming a
// player missing from the roster indicates corrupted history and panics
// rather than silently skipping, since a skip would corrupt score integrity.
func (g *GameState) GetActivePlayers(teamName string, cycleIndex int) []*models.Player {
	active := make([]*models.Player, 0, 4)
	for _, p := range g.Players {
		if p.TeamName == teamName && p.IsStarter {
			active = append(active, p)
		}
	}

	resolve := func(ref models.Player) *models.Player {
		p := g.FindPlayer(ref.TeamName, ref.Name)
		if p == nil {
			panic(fmt.Sprintf("game %s: roster event references unknown player %q on team %q",
				g.ID, ref.Name, ref.TeamName))
		}
		return p
	}
	remove := func(target *models.Player) {
		for i, p := range active {
			if p == target {
				active = append(active[:i], active[i+1:]...)
				return
			}
		}
	}

	for i := 0; i <= cycleIndex && i < len(g.Cycles); i++ {
		c := g.Cycles[i]
		for _, ref := range c.PlayerLeaves {
			if ref.TeamName == teamName {
				remove(resolve(ref))
			}
		}
		for _, ref := range c.PlayerJoins {
			if ref.TeamName == teamName {
				active = append(active, resolve(ref))
			}
		}
		for _, s := range c.Subs {
			if s.In.TeamName == teamName {
				remove(resolve(s.Out))
				active = append(active, resolve(s.In))
			}
		}
	}
	return active
}

// Scores returns one cumulative per-team score tuple per cycle, aligned with
// TeamNames order. Each cycle's delta depends only on that cycle's events:
// the correct buzz's derived value, bonus parts credited to whichever team
// each part names, and the first negative-valued wrong buzz when negs are
// enabled.
func (g *GameState) Scores() [][]int {
	teams := g.TeamNames()
	column := make(map[string]int, len(teams))
	for i, name := range teams {
		column[name] = i
	}

	value := g.BuzzValuer()
	scores := make([][]int, len(g.Cycles))
	running := make([]int, len(teams))
	for i, c := range g.Cycles {
		credit := func(teamName string, points int) {
			col, ok := column[teamName]
			if !ok {
				panic(fmt.Sprintf("game %s: cycle %d credits unknown team %q",
					g.ID, i, teamName))
			}
			running[col] += points
		}

		if c.CorrectBuzz != nil {
			credit(c.CorrectBuzz.TeamName, value(*c.CorrectBuzz, true))
			if c.BonusAnswer != nil {
				for _, part := range c.BonusAnswer.Parts {
					if part.TeamName != "" {
						credit(part.TeamName, part.Points)
					}
				}
			}
		}
		if len(c.WrongBuzzes) > 0 && g.Format.NegValue != 0 {
			if fb := c.FirstWrongBuzz(value); fb != nil {
				credit(fb.TeamName, value(*fb, false))
			}
		}

		tuple := make([]int, len(teams))
		copy(tuple, running)
		scores[i] = tuple
	}
	return scores
}

// PlayableCycles is the prefix of the cycle list that counts toward the
// result. Within regulation every cycle is playable; past regulation the
// game ends at the first overtime checkpoint where the teams are not tied.
// A game tied at every recorded checkpoint is unresolved and returns every
// cycle unmodified.
func (g *GameState) PlayableCycles() []*Cycle {
	if len(g.Cycles) <= g.Format.RegulationTossupCount {
		return g.Cycles
	}
	step := g.Format.MinimumOvertimeQuestionCount
	if step < 1 {
		step = 1
	}
	scores := g.Scores()
	for i := g.Format.RegulationTossupCount - 1; i < len(g.Cycles); i += step {
		if !tied(scores[i]) {
			return g.Cycles[:i+1]
		}
	}
	return g.Cycles
}

func tied(tuple []int) bool {
	if len(tuple) < 2 {
		return false
	}
	best, second := tuple[0], tuple[0]
	if tuple[1] > best {
		best = tuple[1]
	} else {
		second = tuple[1]
	}
	for _, s := range tuple[2:] {
		if s > best {
			second, best = best, s
		} else if s > second {
			second = s
		}
	}
	return best == second
}

// FinalScore is the cumulative score tuple at the last playable cycle.
func (g *GameState) FinalScore() []int {
	playable := g.PlayableCycles()
	if len(playable) == 0 {
		return make([]int, len(g.TeamNames()))
	}
	return g.Scores()[len(playable)-1]
}

// TryUpdatePlayerName renames a roster entry and rewrites the name on every
// event reference across every cycle. It fails without mutating anything if
// the player is missing or the new name collides on the same team. A boolean
// result keeps inline UI validation simple.
func (g *GameState) TryUpdatePlayerName(teamName, oldName, newName string) bool {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return false
	}
	player := g.FindPlayer(teamName, oldName)
	if player == nil || g.FindPlayer(teamName, newName) != nil {
		return false
	}

	player.Name = newName
	rename := func(p *models.Player) {
		if p.Matches(teamName, oldName) {
			p.Name = newName
		}
	}
	for _, c := range g.Cycles {
		for i := range c.WrongBuzzes {
			b := &c.WrongBuzzes[i]
			if b.TeamName == teamName && b.PlayerName == oldName {
				b.PlayerName = newName
			}
		}
		if b := c.CorrectBuzz; b != nil && b.TeamName == teamName && b.PlayerName == oldName {
			b.PlayerName = newName
		}
		for i := range c.PlayerJoins {
			rename(&c.PlayerJoins[i])
		}
		for i := range c.PlayerLeaves {
			rename(&c.PlayerLeaves[i])
		}
		for i := range c.Subs {
			rename(&c.Subs[i].In)
			rename(&c.Subs[i].Out)
		}
	}
	return true
}
