// internal/export/snapshot_test.go
package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbowl/qbscore/internal/game"
	"github.com/quizbowl/qbscore/internal/models"
)

func snapshotGame(t *testing.T) *game.GameState {
	t.Helper()
	g := game.NewGameState(models.ACFGameFormat())
	for _, entry := range []struct {
		name, team string
	}{
		{"Alice", "A"}, {"Bob", "B"},
	} {
		_, err := g.AddNewPlayer(entry.name, entry.team, true)
		require.NoError(t, err)
	}
	packet := models.Packet{Name: "semis.json"}
	for i := 0; i < 3; i++ {
		packet.Tossups = append(packet.Tossups, models.Tossup{
			Question: "alpha beta gamma delta",
			Answer:   "answer",
			Number:   i + 1,
		})
		packet.Bonuses = append(packet.Bonuses, models.Bonus{
			Number: i + 1,
			Parts: []models.BonusPart{
				{Question: "p", Answer: "a", Value: 10},
				{Question: "p", Answer: "a", Value: 10},
				{Question: "p", Answer: "a", Value: 10},
			},
		})
	}
	g.LoadPacket(packet)
	require.NoError(t, g.RecordWrongBuzz(0, "A", "Alice", 0))
	require.NoError(t, g.RecordCorrectBuzz(0, "B", "Bob", 2))
	require.NoError(t, g.SetBonusPartAnswer(0, 0, "B", 10))
	return g
}

// TestFlattenIsDeepCopy: mutating the live game after flattening must not
// show through the snapshot.
func TestFlattenIsDeepCopy(t *testing.T) {
	g := snapshotGame(t)
	snap := Flatten(g)

	assert.Equal(t, []string{"A", "B"}, snap.TeamNames)
	assert.Equal(t, []int{-5, 20}, snap.FinalScore)
	require.Len(t, snap.Cycles, 3)
	require.NotNil(t, snap.Cycles[0].CorrectBuzz)

	require.NoError(t, g.RecordCorrectBuzz(1, "A", "Alice", 1))
	g.Packet.Tossups[0].Question = "mutated"
	g.Cycles[0].BonusAnswer.Parts[1] = game.BonusPartAnswer{TeamName: "B", Points: 10}

	assert.Nil(t, snap.Cycles[1].CorrectBuzz, "later mutation leaked into the snapshot")
	assert.Equal(t, "alpha beta gamma delta", snap.Packet.Tossups[0].Question)
	assert.Zero(t, snap.Cycles[0].BonusAnswer.Parts[1].Points)
	assert.Equal(t, []int{-5, 20}, snap.FinalScore)
}

// TestSnapshotRoundTrip: write, read, unflatten, and rescore.
func TestSnapshotRoundTrip(t *testing.T) {
	g := snapshotGame(t)
	snap := Flatten(g)

	var buf bytes.Buffer
	require.NoError(t, snap.WriteJSON(&buf))

	restored, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, restored.ID)
	assert.Equal(t, snap.Scores, restored.Scores)

	g2, err := Unflatten(restored)
	require.NoError(t, err)
	assert.Equal(t, g.ID, g2.ID)
	assert.Equal(t, g.Scores(), g2.Scores())
	assert.Equal(t, g.FinalScore(), g2.FinalScore())
	assert.Equal(t, g.TeamNames(), g2.TeamNames())

	// The rebuilt game accepts further mutations.
	require.NoError(t, g2.RecordCorrectBuzz(1, "A", "Alice", 1))
	assert.Equal(t, []int{5, 20}, g2.Scores()[1])
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewReader([]byte("not json")))
	require.Error(t, err)

	bad := Snapshot{ID: "not-a-uuid"}
	_, err = Unflatten(&bad)
	require.Error(t, err)
}
