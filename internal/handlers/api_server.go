// internal/handlers/api_server.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/quizbowl/qbscore/internal/cache"
	"github.com/quizbowl/qbscore/internal/export"
	"github.com/quizbowl/qbscore/internal/store"
)

// Server holds the live-game store and the read-only score feeds. It is the
// orchestration layer: the core GameState never reaches into it.
type Server struct {
	Store *store.Store

	feedMu      sync.Mutex
	feeds       map[uuid.UUID]map[*websocket.Conn]struct{}
	actionIndex map[uuid.UUID]int
}

func NewServer() *Server {
	return &Server{
		Store:       store.New(),
		feeds:       make(map[uuid.UUID]map[*websocket.Conn]struct{}),
		actionIndex: make(map[uuid.UUID]int),
	}
}

// newActionRecord stamps a journal record for one mutation. Timestamps are
// unix milliseconds; the journal drainer divides by 1000 on insert.
func newActionRecord(gameID uuid.UUID, index, cycleIndex int, actionType string) cache.ActionRecord {
	return cache.ActionRecord{
		GameID:      gameID,
		ActionIndex: index,
		CycleIndex:  cycleIndex,
		ActionType:  actionType,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// ScoreUpdate is the payload pushed to score-feed subscribers after every
// mutation.
type ScoreUpdate struct {
	GameID     uuid.UUID `json:"game_id"`
	TeamNames  []string  `json:"team_names"`
	Scores     [][]int   `json:"scores"`
	FinalScore []int     `json:"final_score"`
}

func (s *Server) subscribe(gameID uuid.UUID, c *websocket.Conn) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if s.feeds[gameID] == nil {
		s.feeds[gameID] = make(map[*websocket.Conn]struct{})
	}
	s.feeds[gameID][c] = struct{}{}
}

func (s *Server) unsubscribe(gameID uuid.UUID, c *websocket.Conn) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	delete(s.feeds[gameID], c)
}

// afterMutation journals the action and pushes the updated score to feed
// subscribers. The score update is computed from a snapshot taken under the
// game lock by the caller; publishing happens without holding it.
func (s *Server) afterMutation(gameID uuid.UUID, actionType string, cycleIndex int, snap *export.Snapshot) {
	s.feedMu.Lock()
	s.actionIndex[gameID]++
	index := s.actionIndex[gameID]
	conns := make([]*websocket.Conn, 0, len(s.feeds[gameID]))
	for c := range s.feeds[gameID] {
		conns = append(conns, c)
	}
	s.feedMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cache.PublishAction(ctx, newActionRecord(gameID, index, cycleIndex, actionType)); err != nil {
		log.Warnf("journal publish failed for game %s: %v", gameID, err)
	}

	update := ScoreUpdate{
		GameID:     gameID,
		TeamNames:  snap.TeamNames,
		Scores:     snap.Scores,
		FinalScore: snap.FinalScore,
	}
	for _, c := range conns {
		if err := writeWS(ctx, c, update); err != nil {
			log.Debugf("score feed write failed for game %s: %v", gameID, err)
		}
	}
}
