// internal/qbj/export.go
package qbj

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quizbowl/qbscore/internal/game"
)

// ToMatch renders a game as an interchange document. Export is truncated at
// the playable-cycle prefix, never the raw cycle count. Protests and
// thrown-out questions survive as one human-readable note line per event.
func ToMatch(g *game.GameState, packetName string, round int) *Match {
	playable := g.PlayableCycles()
	// A thrown-out tossup consumes an extra packet question, which can leave
	// trailing slots with nothing left to read. Those slots carry no state and
	// have no interchange representation, so drop them.
	for len(playable) > 0 {
		last := len(playable) - 1
		if g.GetTossupIndex(last) >= 0 || len(playable[last].ThrownOutTossups) > 0 {
			break
		}
		playable = playable[:last]
	}
	teams := g.TeamNames()
	value := g.BuzzValuer()

	doc := &Match{
		TossupsRead: len(playable),
	}
	if packetName != "" {
		doc.Packets = strings.TrimSuffix(packetName, filepath.Ext(packetName))
	}
	if round > 0 {
		doc.Round = fmt.Sprintf("%d", round)
	}

	for _, teamName := range teams {
		doc.MatchTeams = append(doc.MatchTeams, buildMatchTeam(g, teamName, playable))
	}

	var notes []string
	for i, c := range playable {
		doc.MatchQuestions = append(doc.MatchQuestions, buildMatchQuestion(g, i, c, value))
		notes = append(notes, cycleNotes(g, i, c)...)
	}
	doc.Notes = strings.Join(notes, "\n")
	return doc
}

func buildMatchTeam(g *game.GameState, teamName string, playable []*game.Cycle) MatchTeam {
	mt := MatchTeam{
		Team: Team{Name: teamName},
	}
	for _, p := range g.Players {
		if p.TeamName == teamName {
			mt.Team.Players = append(mt.Team.Players, Player{Name: p.Name})
		}
	}

	// Lineup snapshots: one per cycle where the active set changed.
	var prev []string
	for i := range playable {
		names := activeNames(g, teamName, i)
		if i == 0 || !equalNameSets(prev, names) {
			lineup := Lineup{FirstQuestion: i + 1}
			for _, name := range names {
				lineup.Players = append(lineup.Players, Player{Name: name})
			}
			mt.Lineups = append(mt.Lineups, lineup)
		}
		prev = names
	}

	for _, line := range g.StatLines(teamName) {
		mp := MatchPlayer{
			Player:       Player{Name: line.Player.Name},
			TossupsHeard: line.TossupsHeard,
		}
		values := make([]int, 0, len(line.AnswerCounts))
		for v := range line.AnswerCounts {
			values = append(values, v)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(values)))
		for _, v := range values {
			mp.AnswerCounts = append(mp.AnswerCounts, AnswerCount{
				Number: line.AnswerCounts[v],
				Answer: AnswerType{Value: v},
			})
		}
		mt.MatchPlayers = append(mt.MatchPlayers, mp)
	}

	controlled, bounced := bonusTotals(g, teamName, playable)
	mt.BonusPoints = controlled
	if g.Format.BonusesBounceBack {
		mt.BonusBouncebackPoints = &bounced
	}
	return mt
}

func bonusTotals(g *game.GameState, teamName string, playable []*game.Cycle) (controlled, bounced int) {
	for _, c := range playable {
		if c.BonusAnswer == nil {
			continue
		}
		for _, part := range c.BonusAnswer.Parts {
			if part.TeamName != teamName || part.Points == 0 {
				continue
			}
			if c.BonusAnswer.ReceivingTeamName == teamName {
				controlled += part.Points
			} else {
				bounced += part.Points
			}
		}
	}
	return controlled, bounced
}

func buildMatchQuestion(g *game.GameState, cycleIndex int, c *game.Cycle, value game.BuzzValuer) MatchQuestion {
	mq := MatchQuestion{
		QuestionNumber: cycleIndex + 1,
	}

	readIndex := g.GetTossupIndex(cycleIndex)
	if len(c.ThrownOutTossups) > 0 {
		mq.TossupQuestion = tossupRef(c.ThrownOutTossups[0].QuestionIndex)
		if readIndex >= 0 {
			ref := tossupRef(readIndex)
			mq.ReplacementTossupQuestion = &ref
		}
	} else if readIndex >= 0 {
		mq.TossupQuestion = tossupRef(readIndex)
	}

	// Only the temporally-first wrong buzz can score as a neg; later wrong
	// buzzes export as zero regardless of recorded position.
	firstWrong := c.FirstWrongBuzz(value)
	mq.Buzzes = make([]Buzz, 0, len(c.WrongBuzzes)+1)
	for _, ev := range c.OrderedBuzzes() {
		isCorrect := c.CorrectBuzz != nil && ev.Seq == c.CorrectBuzz.Seq
		points := 0
		if isCorrect {
			points = value(ev, true)
		} else if firstWrong != nil && ev.Seq == firstWrong.Seq {
			points = value(ev, false)
		}
		mq.Buzzes = append(mq.Buzzes, Buzz{
			Team:         Team{Name: ev.TeamName},
			Player:       Player{Name: ev.PlayerName},
			BuzzPosition: BuzzPosition{WordIndex: ev.Position},
			Result:       AnswerType{Value: points},
		})
	}

	if c.BonusAnswer != nil {
		bonus := &MatchBonus{}
		if c.BonusAnswer.BonusIndex >= 0 && c.BonusAnswer.BonusIndex < len(g.Packet.Bonuses) {
			bonus.Question = &Question{
				QuestionNumber: c.BonusAnswer.BonusIndex + 1,
				Type:           questionTypeBonus,
				Parts:          len(g.Packet.Bonuses[c.BonusAnswer.BonusIndex].Parts),
			}
		}
		for _, part := range c.BonusAnswer.Parts {
			bp := MatchBonusPart{}
			if part.TeamName == c.BonusAnswer.ReceivingTeamName {
				bp.ControlledPoints = part.Points
			}
			if g.Format.BonusesBounceBack {
				bounce := 0
				if part.TeamName != "" && part.TeamName != c.BonusAnswer.ReceivingTeamName {
					bounce = part.Points
				}
				bp.BouncebackPoints = &bounce
			}
			bonus.Parts = append(bonus.Parts, bp)
		}
		mq.Bonus = bonus
	}
	return mq
}

func tossupRef(index int) Question {
	return Question{QuestionNumber: index + 1, Type: questionTypeTossup, Parts: 1}
}

func cycleNotes(g *game.GameState, cycleIndex int, c *game.Cycle) []string {
	var notes []string
	for range c.ThrownOutTossups {
		notes = append(notes, fmt.Sprintf("Tossup thrown out on question %d", cycleIndex+1))
	}
	for range c.ThrownOutBonuses {
		notes = append(notes, fmt.Sprintf("Bonus thrown out on question %d", cycleIndex+1))
	}
	for _, p := range c.TossupProtests {
		notes = append(notes, fmt.Sprintf(
			"Tossup protest on question %d by team %q at word %d. Given answer: %q. Reason: %q",
			cycleIndex+1, p.TeamName, p.Position, p.GivenAnswer, p.Reason))
	}
	for _, p := range c.BonusProtests {
		notes = append(notes, fmt.Sprintf(
			"Bonus protest on question %d by team %q on part %d. Given answer: %q. Reason: %q",
			cycleIndex+1, p.TeamName, p.PartIndex+1, p.GivenAnswer, p.Reason))
	}
	return notes
}

func activeNames(g *game.GameState, teamName string, cycleIndex int) []string {
	players := g.GetActivePlayers(teamName, cycleIndex)
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	return names
}

func equalNameSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
