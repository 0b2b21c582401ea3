// internal/handlers/api_server_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbowl/qbscore/internal/export"
	"github.com/quizbowl/qbscore/internal/game"
	"github.com/quizbowl/qbscore/internal/models"
)

func feedTestGame(t *testing.T) *game.GameState {
	t.Helper()
	g := game.NewGameState(models.ACFGameFormat())
	for _, entry := range []struct{ name, team string }{
		{"Alice", "A"},
		{"Bob", "B"},
	} {
		_, err := g.AddNewPlayer(entry.name, entry.team, true)
		require.NoError(t, err)
	}
	packet := models.Packet{Name: "round1.json"}
	for i := 0; i < 3; i++ {
		packet.Tossups = append(packet.Tossups, models.Tossup{
			Question: "alpha beta gamma delta epsilon",
			Answer:   "answer",
			Number:   i + 1,
		})
	}
	g.LoadPacket(packet)
	return g
}

// TestJournalRecordTimestampMillis pins the journal timestamp unit: the
// drainer divides by 1000 on insert, so records must carry milliseconds.
func TestJournalRecordTimestampMillis(t *testing.T) {
	rec := newActionRecord(uuid.New(), 3, 1, "correct_buzz")
	assert.InDelta(t, time.Now().UnixMilli(), rec.Timestamp, 5000)
	assert.Equal(t, 3, rec.ActionIndex)
	assert.Equal(t, 1, rec.CycleIndex)
	assert.Equal(t, "correct_buzz", rec.ActionType)
}

// TestScoreFeedPushesUpdates dials the feed, reads the initial score, then
// applies a mutation and expects its update on the wire. The subscription is
// registered before the initial snapshot, so nothing between the two frames
// can be lost.
func TestScoreFeedPushesUpdates(t *testing.T) {
	s := NewServer()
	g := feedTestGame(t)
	live := s.Store.Add(g)

	logger := logrus.New()
	ts := httptest.NewServer(ScoreFeedHandler(logger, s))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/ws/" + g.ID.String()
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "done")

	var initial ScoreUpdate
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &initial))
	assert.Equal(t, g.ID, initial.GameID)
	assert.Equal(t, []int{0, 0}, initial.FinalScore)

	live.Mu.Lock()
	mutErr := live.Game.RecordCorrectBuzz(0, "B", "Bob", 1)
	var snap *export.Snapshot
	if mutErr == nil {
		snap = export.Flatten(live.Game)
	}
	live.Mu.Unlock()
	require.NoError(t, mutErr)
	s.afterMutation(g.ID, "correct_buzz", 0, snap)

	var update ScoreUpdate
	_, data, err = c.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &update))
	assert.Equal(t, []int{0, 10}, update.FinalScore)
	assert.Equal(t, []string{"A", "B"}, update.TeamNames)
}
