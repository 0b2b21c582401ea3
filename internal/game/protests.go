// internal/game/protests.go
package game

// Protest-impact analysis. Protest records never change the score; these
// queries tell the moderator whether resolving them could change the result.

// ProtestSwings computes, per team, the best-case point swing if every one
// of that team's protests succeeds. A tossup protest is worth the difference
// between scoring the protested buzz correct versus incorrect; a bonus
// protest is worth the disputed part's value when the protesting team is not
// the team that scored it (when it is, success only avoids a loss already
// reflected in the score).
func (g *GameState) ProtestSwings() map[string]int {
	value := g.BuzzValuer()
	swings := make(map[string]int)
	for _, teamName := range g.TeamNames() {
		swings[teamName] = 0
	}

	for _, c := range g.PlayableCycles() {
		for _, protest := range c.TossupProtests {
			var buzz *TossupAnswerEvent
			for i := range c.WrongBuzzes {
				b := &c.WrongBuzzes[i]
				if b.TeamName == protest.TeamName && b.Position == protest.Position {
					buzz = b
					break
				}
			}
			if buzz == nil {
				continue
			}
			swings[protest.TeamName] += value(*buzz, true) - value(*buzz, false)
		}

		if c.BonusAnswer == nil {
			continue
		}
		for _, protest := range c.BonusProtests {
			if protest.PartIndex < 0 || protest.PartIndex >= len(c.BonusAnswer.Parts) {
				continue
			}
			scorer := c.BonusAnswer.Parts[protest.PartIndex].TeamName
			if scorer == protest.TeamName {
				continue
			}
			swings[protest.TeamName] += g.bonusPartValue(c.BonusAnswer.BonusIndex, protest.PartIndex)
		}
	}
	return swings
}

func (g *GameState) bonusPartValue(bonusIndex, partIndex int) int {
	if bonusIndex < 0 || bonusIndex >= len(g.Packet.Bonuses) {
		return 0
	}
	parts := g.Packet.Bonuses[bonusIndex].Parts
	if partIndex < 0 || partIndex >= len(parts) {
		return 0
	}
	return parts[partIndex].Value
}

// ProtestsMatter reports whether any trailing (or tied) team's best-case
// protest swing could tie or overtake the leader.
func (g *GameState) ProtestsMatter() bool {
	teams := g.TeamNames()
	if len(teams) < 2 {
		return false
	}
	final := g.FinalScore()
	best := final[0]
	leaders := 0
	for _, s := range final {
		if s > best {
			best = s
		}
	}
	for _, s := range final {
		if s == best {
			leaders++
		}
	}

	swings := g.ProtestSwings()
	for i, teamName := range teams {
		deficit := best - final[i]
		swing := swings[teamName]
		if deficit == 0 {
			// A sole leader's successful protest only widens the margin; a
			// tied team's breaks the tie.
			if leaders > 1 && swing > 0 {
				return true
			}
			continue
		}
		if swing >= deficit {
			return true
		}
	}
	return false
}
