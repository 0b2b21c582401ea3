// internal/game/mutators.go
package game

import "fmt"

// Mutation entry points. Each locates the addressed cycle, resolves names
// against the roster, and delegates to the cycle's own mutators so the cycle
// enforces its local invariants.

func (g *GameState) cycleAt(cycleIndex int) (*Cycle, error) {
	if cycleIndex < 0 || cycleIndex >= len(g.Cycles) {
		return nil, fmt.Errorf("cycle index %d out of range (%d cycles)", cycleIndex, len(g.Cycles))
	}
	return g.Cycles[cycleIndex], nil
}

func (g *GameState) buzzEvent(cycleIndex int, teamName, playerName string, position int) (TossupAnswerEvent, error) {
	player := g.FindPlayer(teamName, playerName)
	if player == nil {
		return TossupAnswerEvent{}, fmt.Errorf("no player %q on team %q", playerName, teamName)
	}
	tossupIndex := g.GetTossupIndex(cycleIndex)
	if tossupIndex < 0 {
		return TossupAnswerEvent{}, fmt.Errorf("no tossup left in packet for cycle %d", cycleIndex)
	}
	return TossupAnswerEvent{
		TossupIndex: tossupIndex,
		PlayerID:    player.ID,
		PlayerName:  player.Name,
		TeamName:    player.TeamName,
		Position:    position,
	}, nil
}

// RecordWrongBuzz records an incorrect buzz on the cycle's current tossup.
func (g *GameState) RecordWrongBuzz(cycleIndex int, teamName, playerName string, position int) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	ev, err := g.buzzEvent(cycleIndex, teamName, playerName, position)
	if err != nil {
		return err
	}
	c.AddWrongBuzz(ev)
	return nil
}

// RecordCorrectBuzz resolves the cycle's tossup and opens its bonus shell.
func (g *GameState) RecordCorrectBuzz(cycleIndex int, teamName, playerName string, position int) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	ev, err := g.buzzEvent(cycleIndex, teamName, playerName, position)
	if err != nil {
		return err
	}
	bonusIndex := g.GetBonusIndex(cycleIndex)
	partCount := 0
	if bonusIndex >= 0 {
		partCount = len(g.Packet.Bonuses[bonusIndex].Parts)
	}
	c.AddCorrectBuzz(ev, bonusIndex, partCount)
	return nil
}

// RemoveWrongBuzz withdraws a player's wrong buzz on the cycle, if one was
// recorded.
func (g *GameState) RemoveWrongBuzz(cycleIndex int, teamName, playerName string) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	player := g.FindPlayer(teamName, playerName)
	if player == nil {
		return fmt.Errorf("no player %q on team %q", playerName, teamName)
	}
	c.RemoveWrongBuzz(player.ID)
	return nil
}

// RemoveCorrectBuzz undoes the cycle's correct buzz ruling along with the
// bonus outcome that depended on it.
func (g *GameState) RemoveCorrectBuzz(cycleIndex int) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	c.RemoveCorrectBuzz()
	return nil
}

// SetBonusPartAnswer rules one bonus part. Crediting a team other than the
// receiving team requires the format's bounceback rule.
func (g *GameState) SetBonusPartAnswer(cycleIndex, partIndex int, teamName string, points int) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	if c.BonusAnswer == nil {
		return fmt.Errorf("cycle %d has no bonus to score", cycleIndex)
	}
	if points != 0 && teamName != c.BonusAnswer.ReceivingTeamName && !g.Format.BonusesBounceBack {
		return fmt.Errorf("bounceback scoring is disabled under format %q", g.Format.DisplayName)
	}
	if !c.SetBonusPartAnswer(partIndex, teamName, points) {
		return fmt.Errorf("bonus part %d out of range for cycle %d", partIndex, cycleIndex)
	}
	return nil
}

// ThrowOutTossup discards the tossup currently read at the cycle. The next
// packet tossup (if any) becomes the slot's question without consuming an
// extra cycle.
func (g *GameState) ThrowOutTossup(cycleIndex int) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	questionIndex := g.GetTossupIndex(cycleIndex)
	if questionIndex < 0 {
		return fmt.Errorf("no tossup left in packet for cycle %d", cycleIndex)
	}
	c.AddThrownOutTossup(questionIndex)
	return nil
}

// ThrowOutBonus discards the cycle's bonus.
func (g *GameState) ThrowOutBonus(cycleIndex int) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	questionIndex := g.GetBonusIndex(cycleIndex)
	if questionIndex < 0 {
		return fmt.Errorf("no bonus left in packet for cycle %d", cycleIndex)
	}
	c.AddThrownOutBonus(questionIndex)
	return nil
}

// AddPlayerJoins records a mid-game join for an existing roster entry.
func (g *GameState) AddPlayerJoins(cycleIndex int, teamName, playerName string) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	player := g.FindPlayer(teamName, playerName)
	if player == nil {
		return fmt.Errorf("no player %q on team %q", playerName, teamName)
	}
	c.AddPlayerJoins(*player)
	return nil
}

// AddPlayerLeaves records a player leaving the lineup.
func (g *GameState) AddPlayerLeaves(cycleIndex int, teamName, playerName string) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	player := g.FindPlayer(teamName, playerName)
	if player == nil {
		return fmt.Errorf("no player %q on team %q", playerName, teamName)
	}
	c.AddPlayerLeaves(*player)
	return nil
}

// AddSubstitution swaps outName for inName on the given team at the cycle.
func (g *GameState) AddSubstitution(cycleIndex int, teamName, inName, outName string) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	in := g.FindPlayer(teamName, inName)
	out := g.FindPlayer(teamName, outName)
	if in == nil || out == nil {
		return fmt.Errorf("substitution references unknown player on team %q", teamName)
	}
	c.AddSwapSubstitution(*in, *out)
	return nil
}

// AddTossupProtest records an advisory protest of a tossup ruling.
func (g *GameState) AddTossupProtest(cycleIndex int, teamName string, position int, givenAnswer, reason string) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	questionIndex := g.GetTossupIndex(cycleIndex)
	if questionIndex < 0 {
		return fmt.Errorf("no tossup read at cycle %d", cycleIndex)
	}
	c.AddTossupProtest(teamName, questionIndex, position, givenAnswer, reason)
	return nil
}

// AddBonusProtest records an advisory protest of one bonus part's ruling.
func (g *GameState) AddBonusProtest(cycleIndex, partIndex int, teamName, givenAnswer, reason string) error {
	c, err := g.cycleAt(cycleIndex)
	if err != nil {
		return err
	}
	if c.BonusAnswer == nil {
		return fmt.Errorf("cycle %d has no bonus to protest", cycleIndex)
	}
	if partIndex < 0 || partIndex >= len(c.BonusAnswer.Parts) {
		return fmt.Errorf("bonus part %d out of range for cycle %d", partIndex, cycleIndex)
	}
	c.AddBonusProtest(teamName, c.BonusAnswer.BonusIndex, partIndex, givenAnswer, reason)
	return nil
}
