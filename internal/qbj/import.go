// internal/qbj/import.go
package qbj

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quizbowl/qbscore/internal/game"
	"github.com/quizbowl/qbscore/internal/models"
)

// FromMatch reconstructs a game from an interchange document, the packet it
// was played on, and the rule format. Validation is strict: any structural
// inconsistency fails the whole import and no partial game is returned.
// Cycles are rebuilt by replaying buzzes in packet-question order, inferring
// substitutions, joins, and leaves from consecutive lineup snapshots, and
// thrown-out questions from gaps between consecutive question numbers.
func FromMatch(doc *Match, packet models.Packet, format models.GameFormat) (*game.GameState, error) {
	if err := validateTeams(doc); err != nil {
		return nil, err
	}
	if len(doc.MatchQuestions) == 0 {
		return nil, fmt.Errorf("import match: no match questions")
	}
	questions := append([]MatchQuestion(nil), doc.MatchQuestions...)
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].QuestionNumber < questions[j].QuestionNumber
	})
	for i := 1; i < len(questions); i++ {
		if questions[i].QuestionNumber == questions[i-1].QuestionNumber {
			return nil, fmt.Errorf("import match: duplicate question number %d", questions[i].QuestionNumber)
		}
	}
	if len(questions) > len(packet.Tossups) {
		return nil, fmt.Errorf("import match: %d match questions but packet has only %d tossups",
			len(questions), len(packet.Tossups))
	}

	g := game.NewGameState(format)
	prevLineups := make(map[string][]string, len(doc.MatchTeams))
	for _, mt := range doc.MatchTeams {
		starters := lineupNameSet(mt.Lineups[0])
		for _, p := range mt.Team.Players {
			name := strings.TrimSpace(p.Name)
			if _, err := g.AddNewPlayer(name, mt.Team.Name, starters[name]); err != nil {
				return nil, fmt.Errorf("import match: team %q: %w", mt.Team.Name, err)
			}
		}
		prevLineups[mt.Team.Name] = lineupNames(mt.Lineups[0])
	}
	g.LoadPacket(packet)

	for i, mq := range questions {
		if err := applyLineupChanges(g, doc, i, prevLineups); err != nil {
			return nil, err
		}
		if err := applyTossup(g, i, mq, packet, format); err != nil {
			return nil, err
		}
		if err := applyBonus(g, i, mq); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func validateTeams(doc *Match) error {
	if len(doc.MatchTeams) != 2 {
		return fmt.Errorf("import match: expected 2 teams, got %d", len(doc.MatchTeams))
	}
	seenTeams := make(map[string]bool, 2)
	for _, mt := range doc.MatchTeams {
		name := mt.Team.Name
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("import match: team with empty name")
		}
		if seenTeams[name] {
			return fmt.Errorf("import match: duplicate team name %q", name)
		}
		seenTeams[name] = true

		if len(mt.Team.Players) == 0 {
			return fmt.Errorf("import match: team %q has no players", name)
		}
		if len(mt.Lineups) == 0 {
			return fmt.Errorf("import match: team %q has no lineups", name)
		}
		if mt.BonusPoints < 0 {
			return fmt.Errorf("import match: team %q has negative bonus points", name)
		}
		if mt.BonusBouncebackPoints != nil && *mt.BonusBouncebackPoints < 0 {
			return fmt.Errorf("import match: team %q has negative bounceback points", name)
		}

		roster := make(map[string]bool, len(mt.Team.Players))
		for _, p := range mt.Team.Players {
			trimmed := strings.TrimSpace(p.Name)
			if trimmed == "" {
				return fmt.Errorf("import match: team %q has a player with an empty name", name)
			}
			if roster[trimmed] {
				return fmt.Errorf("import match: team %q has duplicate player %q", name, trimmed)
			}
			roster[trimmed] = true
		}

		if mt.Lineups[0].FirstQuestion != 1 {
			return fmt.Errorf("import match: team %q: first lineup must start at question 1, got %d",
				name, mt.Lineups[0].FirstQuestion)
		}
		for i, lineup := range mt.Lineups {
			if i > 0 && lineup.FirstQuestion <= mt.Lineups[i-1].FirstQuestion {
				return fmt.Errorf("import match: team %q: lineups not strictly increasing at question %d",
					name, lineup.FirstQuestion)
			}
			if lineup.FirstQuestion < 1 || lineup.FirstQuestion > len(doc.MatchQuestions) {
				return fmt.Errorf("import match: team %q: lineup first question %d out of range",
					name, lineup.FirstQuestion)
			}
			for _, p := range lineup.Players {
				if !roster[strings.TrimSpace(p.Name)] {
					return fmt.Errorf("import match: team %q: lineup references unknown player %q",
						name, p.Name)
				}
			}
		}
	}
	return nil
}

// applyLineupChanges diffs the lineup snapshot starting at this question (if
// any) against the previous active set and records the inferred events. Only
// set equality is preserved; the original intra-cycle event order is not part
// of the interchange state.
func applyLineupChanges(g *game.GameState, doc *Match, cycleIndex int, prev map[string][]string) error {
	if cycleIndex == 0 {
		return nil
	}
	for _, mt := range doc.MatchTeams {
		teamName := mt.Team.Name
		var next []string
		found := false
		for _, lineup := range mt.Lineups {
			if lineup.FirstQuestion == cycleIndex+1 {
				next = lineupNames(lineup)
				found = true
				break
			}
		}
		if !found {
			continue
		}

		added := difference(next, prev[teamName])
		removed := difference(prev[teamName], next)
		pairs := len(added)
		if len(removed) < pairs {
			pairs = len(removed)
		}
		for k := 0; k < pairs; k++ {
			if err := g.AddSubstitution(cycleIndex, teamName, added[k], removed[k]); err != nil {
				return fmt.Errorf("import match: question %d: %w", cycleIndex+1, err)
			}
		}
		for _, name := range added[pairs:] {
			if err := g.AddPlayerJoins(cycleIndex, teamName, name); err != nil {
				return fmt.Errorf("import match: question %d: %w", cycleIndex+1, err)
			}
		}
		for _, name := range removed[pairs:] {
			if err := g.AddPlayerLeaves(cycleIndex, teamName, name); err != nil {
				return fmt.Errorf("import match: question %d: %w", cycleIndex+1, err)
			}
		}
		prev[teamName] = next
	}
	return nil
}

func applyTossup(g *game.GameState, cycleIndex int, mq MatchQuestion, packet models.Packet, format models.GameFormat) error {
	read := mq.TossupQuestion
	if mq.ReplacementTossupQuestion != nil {
		read = *mq.ReplacementTossupQuestion
	}
	target := read.QuestionNumber - 1
	if target < 0 || target >= len(packet.Tossups) {
		return fmt.Errorf("import match: question %d references tossup %d outside the packet",
			cycleIndex+1, read.QuestionNumber)
	}
	for g.GetTossupIndex(cycleIndex) >= 0 && g.GetTossupIndex(cycleIndex) < target {
		if err := g.ThrowOutTossup(cycleIndex); err != nil {
			return fmt.Errorf("import match: question %d: %w", cycleIndex+1, err)
		}
	}
	if g.GetTossupIndex(cycleIndex) != target {
		return fmt.Errorf("import match: question %d: tossup %d was already used at an earlier slot",
			cycleIndex+1, read.QuestionNumber)
	}

	lastWord := packet.Tossups[target].LastWordIndex(&format)
	var correct *Buzz
	for i, buzz := range mq.Buzzes {
		if g.FindPlayer(buzz.Team.Name, buzz.Player.Name) == nil {
			return fmt.Errorf("import match: question %d: buzz references unknown player %q on team %q",
				cycleIndex+1, buzz.Player.Name, buzz.Team.Name)
		}
		position := buzz.BuzzPosition.WordIndex
		if position < 0 || position > lastWord {
			return fmt.Errorf("import match: question %d: buzz position %d out of range [0, %d]",
				cycleIndex+1, position, lastWord)
		}
		if buzz.Result.Value > 0 {
			if correct != nil {
				return fmt.Errorf("import match: question %d: multiple correct buzzes", cycleIndex+1)
			}
			correct = &mq.Buzzes[i]
		}
	}

	// Wrong buzzes first, in document (temporal) order; the correct buzz
	// closes the tossup and no buzz may follow it.
	for _, buzz := range mq.Buzzes {
		if buzz.Result.Value > 0 {
			continue
		}
		if err := g.RecordWrongBuzz(cycleIndex, buzz.Team.Name, buzz.Player.Name, buzz.BuzzPosition.WordIndex); err != nil {
			return fmt.Errorf("import match: question %d: %w", cycleIndex+1, err)
		}
	}
	if correct != nil {
		if err := g.RecordCorrectBuzz(cycleIndex, correct.Team.Name, correct.Player.Name, correct.BuzzPosition.WordIndex); err != nil {
			return fmt.Errorf("import match: question %d: %w", cycleIndex+1, err)
		}
	}
	return nil
}

func applyBonus(g *game.GameState, cycleIndex int, mq MatchQuestion) error {
	if mq.Bonus == nil {
		return nil
	}
	c := g.Cycles[cycleIndex]
	if c.CorrectBuzz == nil || c.BonusAnswer == nil {
		return fmt.Errorf("import match: question %d has a bonus but no correct buzz", cycleIndex+1)
	}
	receiving := c.BonusAnswer.ReceivingTeamName
	other := ""
	for _, teamName := range g.TeamNames() {
		if teamName != receiving {
			other = teamName
			break
		}
	}

	if mq.Bonus.Question != nil {
		target := mq.Bonus.Question.QuestionNumber - 1
		for g.GetBonusIndex(cycleIndex) >= 0 && g.GetBonusIndex(cycleIndex) < target {
			if err := g.ThrowOutBonus(cycleIndex); err != nil {
				return fmt.Errorf("import match: question %d: %w", cycleIndex+1, err)
			}
		}
		if g.GetBonusIndex(cycleIndex) != target {
			return fmt.Errorf("import match: question %d: bonus %d was already used at an earlier slot",
				cycleIndex+1, mq.Bonus.Question.QuestionNumber)
		}
	}

	for j, part := range mq.Bonus.Parts {
		if part.ControlledPoints < 0 {
			return fmt.Errorf("import match: question %d: negative controlled points on bonus part %d",
				cycleIndex+1, j+1)
		}
		bounce := 0
		if part.BouncebackPoints != nil {
			bounce = *part.BouncebackPoints
		}
		if bounce < 0 {
			return fmt.Errorf("import match: question %d: negative bounceback points on bonus part %d",
				cycleIndex+1, j+1)
		}
		if part.ControlledPoints > 0 && bounce > 0 {
			return fmt.Errorf("import match: question %d: bonus part %d scored by both teams",
				cycleIndex+1, j+1)
		}
		if part.ControlledPoints > 0 {
			if err := g.SetBonusPartAnswer(cycleIndex, j, receiving, part.ControlledPoints); err != nil {
				return fmt.Errorf("import match: question %d: %w", cycleIndex+1, err)
			}
		} else if bounce > 0 {
			if other == "" {
				return fmt.Errorf("import match: question %d: bounceback points with no opposing team",
					cycleIndex+1)
			}
			if err := g.SetBonusPartAnswer(cycleIndex, j, other, bounce); err != nil {
				return fmt.Errorf("import match: question %d: %w", cycleIndex+1, err)
			}
		}
	}
	return nil
}

func lineupNames(lineup Lineup) []string {
	names := make([]string, 0, len(lineup.Players))
	for _, p := range lineup.Players {
		names = append(names, strings.TrimSpace(p.Name))
	}
	return names
}

func lineupNameSet(lineup Lineup) map[string]bool {
	set := make(map[string]bool, len(lineup.Players))
	for _, name := range lineupNames(lineup) {
		set[name] = true
	}
	return set
}

func difference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, name := range b {
		inB[name] = true
	}
	var out []string
	for _, name := range a {
		if !inB[name] {
			out = append(out, name)
		}
	}
	return out
}
