// internal/qbj/convert_test.go
package qbj

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbowl/qbscore/internal/game"
	"github.com/quizbowl/qbscore/internal/models"
)

func interchangePacket(tossupCount int) models.Packet {
	p := models.Packet{Name: "finals.json"}
	for i := 0; i < tossupCount; i++ {
		p.Tossups = append(p.Tossups, models.Tossup{
			Question: "alpha beta gamma delta epsilon",
			Answer:   "answer",
			Number:   i + 1,
		})
		p.Bonuses = append(p.Bonuses, models.Bonus{
			Leadin: "For ten points each:",
			Number: i + 1,
			Parts: []models.BonusPart{
				{Question: "p1", Answer: "a1", Value: 10},
				{Question: "p2", Answer: "a2", Value: 10},
				{Question: "p3", Answer: "a3", Value: 10},
			},
		})
	}
	return p
}

func interchangeGame(t *testing.T, format models.GameFormat, packet models.Packet) *game.GameState {
	t.Helper()
	g := game.NewGameState(format)
	for _, entry := range []struct {
		name, team string
		starter    bool
	}{
		{"Alice", "A", true},
		{"Alan", "A", true},
		{"Anna", "A", false},
		{"Bob", "B", true},
	} {
		_, err := g.AddNewPlayer(entry.name, entry.team, entry.starter)
		require.NoError(t, err)
	}
	g.LoadPacket(packet)
	return g
}

func activeNameSet(g *game.GameState, team string, cycleIndex int) []string {
	players := g.GetActivePlayers(team, cycleIndex)
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}

// TestRoundTrip exports a game with buzzes, bonuses, a substitution, and a
// thrown-out tossup, reimports it, and checks that every piece of
// round-trippable state survives.
func TestRoundTrip(t *testing.T) {
	packet := interchangePacket(5)
	g := interchangeGame(t, models.PowersGameFormat(), packet)

	require.NoError(t, g.RecordWrongBuzz(0, "A", "Alice", 0))
	require.NoError(t, g.RecordCorrectBuzz(0, "B", "Bob", 1))
	require.NoError(t, g.SetBonusPartAnswer(0, 1, "B", 10))
	require.NoError(t, g.SetBonusPartAnswer(0, 2, "B", 10))

	require.NoError(t, g.AddSubstitution(1, "A", "Anna", "Alan"))
	require.NoError(t, g.RecordCorrectBuzz(1, "A", "Anna", 3))

	require.NoError(t, g.ThrowOutTossup(2))
	require.NoError(t, g.RecordCorrectBuzz(2, "A", "Alice", 2))

	doc := ToMatch(g, packet.Name, 3)
	assert.Equal(t, "finals", doc.Packets)
	assert.Equal(t, "3", doc.Round)
	require.Len(t, doc.MatchQuestions, 4, "the unreadable trailing slot is dropped")

	g2, err := FromMatch(doc, packet, g.Format)
	require.NoError(t, err)

	// Roster round trip.
	require.Len(t, g2.Players, len(g.Players))
	for _, p := range g.Players {
		assert.NotNil(t, g2.FindPlayer(p.TeamName, p.Name))
	}
	assert.Equal(t, g.TeamNames(), g2.TeamNames())

	// Per-cycle state round trip.
	require.Len(t, g2.Cycles, len(g.Cycles))
	for i := range g.Cycles {
		want, got := g.Cycles[i], g2.Cycles[i]
		assert.Equal(t, want.ThrownOutTossups, got.ThrownOutTossups, "cycle %d", i)
		assert.Equal(t, want.ThrownOutBonuses, got.ThrownOutBonuses, "cycle %d", i)

		if want.CorrectBuzz == nil {
			assert.Nil(t, got.CorrectBuzz, "cycle %d", i)
		} else {
			require.NotNil(t, got.CorrectBuzz, "cycle %d", i)
			assert.Equal(t, want.CorrectBuzz.TossupIndex, got.CorrectBuzz.TossupIndex)
			assert.Equal(t, want.CorrectBuzz.PlayerName, got.CorrectBuzz.PlayerName)
			assert.Equal(t, want.CorrectBuzz.TeamName, got.CorrectBuzz.TeamName)
			assert.Equal(t, want.CorrectBuzz.Position, got.CorrectBuzz.Position)
		}
		if want.BonusAnswer == nil {
			assert.Nil(t, got.BonusAnswer, "cycle %d", i)
		} else {
			require.NotNil(t, got.BonusAnswer, "cycle %d", i)
			assert.Equal(t, want.BonusAnswer.BonusIndex, got.BonusAnswer.BonusIndex)
			assert.Equal(t, want.BonusAnswer.ReceivingTeamName, got.BonusAnswer.ReceivingTeamName)
			assert.Equal(t, want.BonusAnswer.Parts, got.BonusAnswer.Parts)
		}
		require.Len(t, got.WrongBuzzes, len(want.WrongBuzzes), "cycle %d", i)

		for _, team := range g.TeamNames() {
			assert.Equal(t, activeNameSet(g, team, i), activeNameSet(g2, team, i),
				"active set for %s diverged at cycle %d", team, i)
		}
	}

	assert.Equal(t, g.Scores(), g2.Scores())
	assert.Equal(t, g.FinalScore(), g2.FinalScore())
}

// TestExportShape spot-checks the document layout for the worked scenario.
func TestExportShape(t *testing.T) {
	packet := interchangePacket(3)
	g := interchangeGame(t, models.ACFGameFormat(), packet)
	require.NoError(t, g.RecordWrongBuzz(0, "A", "Alice", 0))
	require.NoError(t, g.RecordCorrectBuzz(0, "B", "Bob", 1))
	require.NoError(t, g.SetBonusPartAnswer(0, 0, "B", 10))

	doc := ToMatch(g, "", 0)
	assert.Equal(t, 3, doc.TossupsRead)
	assert.Empty(t, doc.Packets)
	assert.Empty(t, doc.Round)
	require.Len(t, doc.MatchTeams, 2)

	teamA := doc.MatchTeams[0]
	assert.Equal(t, "A", teamA.Team.Name)
	require.Len(t, teamA.Team.Players, 3)
	require.Len(t, teamA.Lineups, 1)
	assert.Equal(t, 1, teamA.Lineups[0].FirstQuestion)
	require.Len(t, teamA.Lineups[0].Players, 2, "bench players are not in the starting lineup")
	assert.Equal(t, 0, teamA.BonusPoints)
	assert.Nil(t, teamA.BonusBouncebackPoints, "bounceback totals only under bounceback formats")

	teamB := doc.MatchTeams[1]
	assert.Equal(t, 10, teamB.BonusPoints)

	q1 := doc.MatchQuestions[0]
	assert.Equal(t, 1, q1.QuestionNumber)
	assert.Equal(t, Question{QuestionNumber: 1, Type: "tossup", Parts: 1}, q1.TossupQuestion)
	require.Len(t, q1.Buzzes, 2)
	assert.Equal(t, "Alice", q1.Buzzes[0].Player.Name)
	assert.Equal(t, -5, q1.Buzzes[0].Result.Value)
	assert.Equal(t, 0, q1.Buzzes[0].BuzzPosition.WordIndex)
	assert.Equal(t, "Bob", q1.Buzzes[1].Player.Name)
	assert.Equal(t, 10, q1.Buzzes[1].Result.Value)
	require.NotNil(t, q1.Bonus)
	require.NotNil(t, q1.Bonus.Question)
	assert.Equal(t, 1, q1.Bonus.Question.QuestionNumber)
	require.Len(t, q1.Bonus.Parts, 3)
	assert.Equal(t, 10, q1.Bonus.Parts[0].ControlledPoints)
	assert.Equal(t, 0, q1.Bonus.Parts[1].ControlledPoints)

	assert.Empty(t, doc.Notes)
	assert.Nil(t, doc.MatchQuestions[1].Bonus, "dead tossup has no bonus")
}

// TestExportNegCoercion: only the temporally first wrong buzz exports a
// negative value; later wrong buzzes in the cycle are coerced to zero.
func TestExportNegCoercion(t *testing.T) {
	g := interchangeGame(t, models.ACFGameFormat(), interchangePacket(2))
	require.NoError(t, g.RecordWrongBuzz(0, "A", "Alice", 0))
	require.NoError(t, g.RecordWrongBuzz(0, "B", "Bob", 2))

	doc := ToMatch(g, "", 0)
	require.Len(t, doc.MatchQuestions[0].Buzzes, 2)
	assert.Equal(t, -5, doc.MatchQuestions[0].Buzzes[0].Result.Value)
	assert.Equal(t, 0, doc.MatchQuestions[0].Buzzes[1].Result.Value)
}

// TestExportThrownOutNotes checks the reference note line for a thrown-out
// tossup and the replacement-question reference.
func TestExportThrownOutNotes(t *testing.T) {
	g := interchangeGame(t, models.ACFGameFormat(), interchangePacket(3))
	require.NoError(t, g.ThrowOutTossup(0))
	require.NoError(t, g.RecordCorrectBuzz(0, "B", "Bob", 2))

	doc := ToMatch(g, "", 0)
	assert.Equal(t, "Tossup thrown out on question 1", doc.Notes)

	q1 := doc.MatchQuestions[0]
	assert.Equal(t, 1, q1.TossupQuestion.QuestionNumber)
	require.NotNil(t, q1.ReplacementTossupQuestion)
	assert.Equal(t, 2, q1.ReplacementTossupQuestion.QuestionNumber)
}

func TestExportProtestNotes(t *testing.T) {
	g := interchangeGame(t, models.ACFGameFormat(), interchangePacket(2))
	require.NoError(t, g.RecordWrongBuzz(0, "A", "Alice", 1))
	require.NoError(t, g.AddTossupProtest(0, "A", 1, "tungsten", "alternate answer"))

	doc := ToMatch(g, "", 0)
	lines := strings.Split(doc.Notes, "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `Tossup protest on question 1 by team "A"`)
	assert.Contains(t, lines[0], `"tungsten"`)
}

// TestExportBouncebackSplit: under a bounceback format, parts scored by the
// non-receiving team export as bounceback points.
func TestExportBouncebackSplit(t *testing.T) {
	g := interchangeGame(t, models.PACEGameFormat(), interchangePacket(2))
	require.NoError(t, g.RecordCorrectBuzz(0, "B", "Bob", 1))
	require.NoError(t, g.SetBonusPartAnswer(0, 0, "B", 10))
	require.NoError(t, g.SetBonusPartAnswer(0, 1, "A", 10))

	doc := ToMatch(g, "", 0)

	var teamA, teamB *MatchTeam
	for i := range doc.MatchTeams {
		switch doc.MatchTeams[i].Team.Name {
		case "A":
			teamA = &doc.MatchTeams[i]
		case "B":
			teamB = &doc.MatchTeams[i]
		}
	}
	require.NotNil(t, teamA)
	require.NotNil(t, teamB)
	assert.Equal(t, 10, teamB.BonusPoints)
	require.NotNil(t, teamA.BonusBouncebackPoints)
	assert.Equal(t, 10, *teamA.BonusBouncebackPoints)

	parts := doc.MatchQuestions[0].Bonus.Parts
	require.Len(t, parts, 3)
	assert.Equal(t, 10, parts[0].ControlledPoints)
	require.NotNil(t, parts[1].BouncebackPoints)
	assert.Equal(t, 10, *parts[1].BouncebackPoints)
	assert.Equal(t, 0, parts[1].ControlledPoints)

	// And the split survives reimport.
	g2, err := FromMatch(doc, g.Packet, g.Format)
	require.NoError(t, err)
	require.NotNil(t, g2.Cycles[0].BonusAnswer)
	assert.Equal(t, "B", g2.Cycles[0].BonusAnswer.Parts[0].TeamName)
	assert.Equal(t, "A", g2.Cycles[0].BonusAnswer.Parts[1].TeamName)
	assert.Equal(t, g.Scores(), g2.Scores())
}

// baseDoc builds a known-valid three-question document for the validation
// table by exporting a small game.
func baseDoc(t *testing.T) (*Match, models.Packet, models.GameFormat) {
	t.Helper()
	packet := interchangePacket(3)
	format := models.ACFGameFormat()
	g := interchangeGame(t, format, packet)
	require.NoError(t, g.RecordWrongBuzz(0, "A", "Alice", 0))
	require.NoError(t, g.RecordCorrectBuzz(0, "B", "Bob", 1))
	require.NoError(t, g.SetBonusPartAnswer(0, 0, "B", 10))
	require.NoError(t, g.RecordCorrectBuzz(2, "A", "Alan", 0))

	doc := ToMatch(g, packet.Name, 1)
	_, err := FromMatch(doc, packet, format)
	require.NoError(t, err, "base document must be importable")
	return doc, packet, format
}

// TestImportValidation drives the strict-rejection table: each mutation of a
// valid document must fail the whole import.
func TestImportValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(doc *Match)
		wantErr string
	}{
		{
			name:    "one team",
			mutate:  func(doc *Match) { doc.MatchTeams = doc.MatchTeams[:1] },
			wantErr: "expected 2 teams",
		},
		{
			name:    "duplicate team name",
			mutate:  func(doc *Match) { doc.MatchTeams[1].Team.Name = doc.MatchTeams[0].Team.Name },
			wantErr: "duplicate team name",
		},
		{
			name:    "empty team name",
			mutate:  func(doc *Match) { doc.MatchTeams[0].Team.Name = "  " },
			wantErr: "empty name",
		},
		{
			name:    "no players",
			mutate:  func(doc *Match) { doc.MatchTeams[0].Team.Players = nil },
			wantErr: "has no players",
		},
		{
			name:    "no lineups",
			mutate:  func(doc *Match) { doc.MatchTeams[0].Lineups = nil },
			wantErr: "has no lineups",
		},
		{
			name:    "empty player name",
			mutate:  func(doc *Match) { doc.MatchTeams[0].Team.Players[2].Name = "  " },
			wantErr: "empty name",
		},
		{
			name: "duplicate player after trim",
			mutate: func(doc *Match) {
				doc.MatchTeams[0].Team.Players[2].Name = doc.MatchTeams[0].Team.Players[0].Name + " "
			},
			wantErr: "duplicate player",
		},
		{
			name:    "first lineup not at question 1",
			mutate:  func(doc *Match) { doc.MatchTeams[0].Lineups[0].FirstQuestion = 2 },
			wantErr: "must start at question 1",
		},
		{
			name: "lineups not strictly increasing",
			mutate: func(doc *Match) {
				doc.MatchTeams[0].Lineups = append(doc.MatchTeams[0].Lineups, Lineup{
					FirstQuestion: 1,
					Players:       doc.MatchTeams[0].Lineups[0].Players,
				})
			},
			wantErr: "not strictly increasing",
		},
		{
			name: "lineup out of range",
			mutate: func(doc *Match) {
				doc.MatchTeams[0].Lineups = append(doc.MatchTeams[0].Lineups, Lineup{
					FirstQuestion: 99,
					Players:       doc.MatchTeams[0].Lineups[0].Players,
				})
			},
			wantErr: "out of range",
		},
		{
			name: "lineup references unknown player",
			mutate: func(doc *Match) {
				doc.MatchTeams[0].Lineups[0].Players[0].Name = "Nobody"
			},
			wantErr: "unknown player",
		},
		{
			name:    "negative bonus points",
			mutate:  func(doc *Match) { doc.MatchTeams[0].BonusPoints = -10 },
			wantErr: "negative bonus points",
		},
		{
			// With no questions every lineup's first_question is out of range,
			// so team validation rejects the document first.
			name:    "no match questions",
			mutate:  func(doc *Match) { doc.MatchQuestions = nil },
			wantErr: "out of range",
		},
		{
			name:    "duplicate question number",
			mutate:  func(doc *Match) { doc.MatchQuestions[1].QuestionNumber = 1 },
			wantErr: "duplicate question number",
		},
		{
			name: "buzz references unknown player",
			mutate: func(doc *Match) {
				doc.MatchQuestions[0].Buzzes[0].Player.Name = "Nobody"
			},
			wantErr: "unknown player",
		},
		{
			name: "buzz position out of range",
			mutate: func(doc *Match) {
				doc.MatchQuestions[0].Buzzes[1].BuzzPosition.WordIndex = 999
			},
			wantErr: "out of range",
		},
		{
			name: "multiple correct buzzes",
			mutate: func(doc *Match) {
				extra := doc.MatchQuestions[0].Buzzes[1]
				extra.Player.Name = "Alan"
				extra.Team.Name = "A"
				doc.MatchQuestions[0].Buzzes = append(doc.MatchQuestions[0].Buzzes, extra)
			},
			wantErr: "multiple correct buzzes",
		},
		{
			name: "tossup reused at a later slot",
			mutate: func(doc *Match) {
				doc.MatchQuestions[1].TossupQuestion.QuestionNumber = 1
			},
			wantErr: "already used",
		},
		{
			name: "bonus without a correct buzz",
			mutate: func(doc *Match) {
				doc.MatchQuestions[1].Bonus = &MatchBonus{
					Parts: []MatchBonusPart{{ControlledPoints: 10}},
				}
			},
			wantErr: "no correct buzz",
		},
		{
			name: "negative bonus part",
			mutate: func(doc *Match) {
				doc.MatchQuestions[0].Bonus.Parts[0].ControlledPoints = -10
			},
			wantErr: "negative controlled points",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, packet, format := baseDoc(t)
			tc.mutate(doc)
			_, err := FromMatch(doc, packet, format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

// TestImportRejectsOversizedMatch: more match questions than packet tossups.
func TestImportRejectsOversizedMatch(t *testing.T) {
	doc, _, format := baseDoc(t)
	_, err := FromMatch(doc, interchangePacket(2), format)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "packet has only")
}
