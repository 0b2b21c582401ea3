// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quizbowl/qbscore/internal/middleware"
)

// ScoreFeedHandler upgrades the connection to a read-only score feed for one
// game. The feed pushes a ScoreUpdate after every mutation; clients never
// send game state back (this is a spectator/scoreboard surface, not state
// sync).
func ScoreFeedHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Extract game ID from URL path: /game/ws/{game_id}
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing game_id in path (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}
		gameID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "Invalid game_id format", http.StatusBadRequest)
			return
		}

		live, ok := s.Store.Get(gameID)
		if !ok {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"scorefeed"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		// Subscribe before taking the initial snapshot: a mutation landing in
		// between is then pushed as an update rather than lost until the one
		// after it.
		s.subscribe(gameID, c)
		defer s.unsubscribe(gameID, c)

		// Send the current score immediately so a late subscriber is not blank
		// until the next mutation.
		live.Mu.Lock()
		initial := ScoreUpdate{
			GameID:     gameID,
			TeamNames:  live.Game.TeamNames(),
			Scores:     live.Game.Scores(),
			FinalScore: live.Game.FinalScore(),
		}
		live.Mu.Unlock()

		ctx := r.Context()
		if err := writeWS(ctx, c, initial); err != nil {
			c.Close(websocket.StatusInternalError, "initial score write failed")
			return
		}

		// Drain (and ignore) client frames until the connection closes.
		for {
			if _, _, err := c.Read(ctx); err != nil {
				middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
				c.Close(websocket.StatusNormalClosure, "bye")
				return
			}
		}
	}
}

// writeWS marshals v and writes it as a single text frame with a short
// deadline so one stuck subscriber cannot stall the mutation path.
func writeWS(ctx context.Context, c *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.Write(wctx, websocket.MessageText, data)
}
