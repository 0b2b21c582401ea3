// internal/handlers/game.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/quizbowl/qbscore/internal/config"
	"github.com/quizbowl/qbscore/internal/database"
	"github.com/quizbowl/qbscore/internal/export"
	"github.com/quizbowl/qbscore/internal/game"
	"github.com/quizbowl/qbscore/internal/models"
	"github.com/quizbowl/qbscore/internal/qbj"
	"github.com/quizbowl/qbscore/internal/store"
)

type rosterEntry struct {
	Name    string `json:"name"`
	Team    string `json:"team"`
	Starter bool   `json:"starter"`
}

type createGameRequest struct {
	Format  string        `json:"format"`
	Packet  models.Packet `json:"packet"`
	Players []rosterEntry `json:"players"`
}

// CreateGameHandler builds a new live game from a format preset, a packet,
// and a roster.
func CreateGameHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		var req createGameRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		format, ok := config.LookupFormat(req.Format)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown format preset "+req.Format)
			return
		}
		if len(req.Packet.Tossups) == 0 {
			writeError(w, http.StatusBadRequest, "packet has no tossups")
			return
		}

		g := game.NewGameState(format)
		for _, entry := range req.Players {
			if _, err := g.AddNewPlayer(entry.Name, entry.Team, entry.Starter); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		g.LoadPacket(req.Packet)

		s.Store.Add(g)
		log.Infof("Created game %s (%d tossups, %d players)", g.ID, len(req.Packet.Tossups), len(req.Players))
		writeJSON(w, http.StatusCreated, map[string]string{"id": g.ID.String()})
	}
}

// GameStateHandler returns the flattened plain-data snapshot of a game.
func GameStateHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		live, _, ok := lookupGame(s, w, r)
		if !ok {
			return
		}
		live.Mu.Lock()
		snap := export.Flatten(live.Game)
		live.Mu.Unlock()
		writeJSON(w, http.StatusOK, snap)
	}
}

// statLineView is the wire form of one player's stat line.
type statLineView struct {
	Player       string      `json:"player"`
	TossupsHeard int         `json:"tossups_heard"`
	AnswerCounts map[int]int `json:"answer_counts"`
	Points       int         `json:"points"`
}

// GameScoreHandler returns the per-cycle cumulative score tuples, per-player
// stat lines, and the protest analysis.
func GameScoreHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		live, _, ok := lookupGame(s, w, r)
		if !ok {
			return
		}
		// Copy stat lines to plain values under the lock; encoding happens
		// after release and must not touch live roster pointers.
		live.Mu.Lock()
		stats := make(map[string][]statLineView)
		for _, team := range live.Game.TeamNames() {
			for _, line := range live.Game.StatLines(team) {
				counts := make(map[int]int, len(line.AnswerCounts))
				for v, n := range line.AnswerCounts {
					counts[v] = n
				}
				stats[team] = append(stats[team], statLineView{
					Player:       line.Player.Name,
					TossupsHeard: line.TossupsHeard,
					AnswerCounts: counts,
					Points:       line.Points,
				})
			}
		}
		resp := map[string]interface{}{
			"team_names":      live.Game.TeamNames(),
			"scores":          live.Game.Scores(),
			"final_score":     live.Game.FinalScore(),
			"protest_swings":  live.Game.ProtestSwings(),
			"protests_matter": live.Game.ProtestsMatter(),
			"stat_lines":      stats,
		}
		live.Mu.Unlock()
		writeJSON(w, http.StatusOK, resp)
	}
}

type actionRequest struct {
	GameID      uuid.UUID `json:"gameId"`
	Type        string    `json:"type"`
	Cycle       int       `json:"cycle"`
	Team        string    `json:"team"`
	Player      string    `json:"player"`
	Position    int       `json:"position"`
	PartIndex   int       `json:"partIndex"`
	Points      int       `json:"points"`
	InPlayer    string    `json:"inPlayer"`
	OutPlayer   string    `json:"outPlayer"`
	GivenAnswer string    `json:"givenAnswer"`
	Reason      string    `json:"reason"`
	OldName     string    `json:"oldName"`
	NewName     string    `json:"newName"`
	Starter     bool      `json:"starter"`
	Format      string    `json:"format"`
}

// GameActionHandler applies one scoring or roster mutation to a live game.
// The dispatch mirrors the core's mutator surface one to one.
func GameActionHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		var req actionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		live, exists := s.Store.Get(req.GameID)
		if !exists {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}

		live.Mu.Lock()
		err := applyAction(live.Game, &req)
		var snap *export.Snapshot
		if err == nil {
			snap = export.Flatten(live.Game)
		}
		live.Mu.Unlock()

		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.afterMutation(req.GameID, req.Type, req.Cycle, snap)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"final_score": snap.FinalScore,
			"team_names":  snap.TeamNames,
		})
	}
}

func applyAction(g *game.GameState, req *actionRequest) error {
	switch req.Type {
	case "wrong_buzz":
		return g.RecordWrongBuzz(req.Cycle, req.Team, req.Player, req.Position)
	case "correct_buzz":
		return g.RecordCorrectBuzz(req.Cycle, req.Team, req.Player, req.Position)
	case "remove_wrong_buzz":
		return g.RemoveWrongBuzz(req.Cycle, req.Team, req.Player)
	case "remove_correct_buzz":
		return g.RemoveCorrectBuzz(req.Cycle)
	case "bonus_part":
		return g.SetBonusPartAnswer(req.Cycle, req.PartIndex, req.Team, req.Points)
	case "throw_out_tossup":
		return g.ThrowOutTossup(req.Cycle)
	case "throw_out_bonus":
		return g.ThrowOutBonus(req.Cycle)
	case "substitution":
		return g.AddSubstitution(req.Cycle, req.Team, req.InPlayer, req.OutPlayer)
	case "player_joins":
		return g.AddPlayerJoins(req.Cycle, req.Team, req.Player)
	case "player_leaves":
		return g.AddPlayerLeaves(req.Cycle, req.Team, req.Player)
	case "add_player":
		_, err := g.AddNewPlayer(req.Player, req.Team, req.Starter)
		return err
	case "remove_player":
		if !g.RemoveNewPlayer(req.Team, req.Player) {
			return fmt.Errorf("cannot remove player %q from team %q", req.Player, req.Team)
		}
		return nil
	case "rename_player":
		if !g.TryUpdatePlayerName(req.Team, req.OldName, req.NewName) {
			return fmt.Errorf("cannot rename %q to %q on team %q", req.OldName, req.NewName, req.Team)
		}
		return nil
	case "set_format":
		format, ok := config.LookupFormat(req.Format)
		if !ok {
			return fmt.Errorf("unknown format preset %q", req.Format)
		}
		return g.SetGameFormat(format)
	case "tossup_protest":
		return g.AddTossupProtest(req.Cycle, req.Team, req.Position, req.GivenAnswer, req.Reason)
	case "bonus_protest":
		return g.AddBonusProtest(req.Cycle, req.PartIndex, req.Team, req.GivenAnswer, req.Reason)
	default:
		return fmt.Errorf("unknown action type %q", req.Type)
	}
}

// ExportGameHandler renders a live game as an interchange document.
func ExportGameHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		live, _, ok := lookupGame(s, w, r)
		if !ok {
			return
		}
		round, _ := strconv.Atoi(r.URL.Query().Get("round"))
		packetName := r.URL.Query().Get("packetName")

		live.Mu.Lock()
		doc := qbj.ToMatch(live.Game, packetName, round)
		live.Mu.Unlock()
		writeJSON(w, http.StatusOK, doc)
	}
}

type importGameRequest struct {
	Document qbj.Match     `json:"document"`
	Packet   models.Packet `json:"packet"`
	Format   string        `json:"format"`
}

// ImportGameHandler reconstructs a live game from an interchange document.
// Validation failures return 422 with the converter's message; nothing is
// stored on failure.
func ImportGameHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		var req importGameRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		format, ok := config.LookupFormat(req.Format)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown format preset "+req.Format)
			return
		}
		g, err := qbj.FromMatch(&req.Document, req.Packet, format)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.Store.Add(g)
		log.Infof("Imported game %s from interchange document", g.ID)
		writeJSON(w, http.StatusCreated, map[string]string{"id": g.ID.String()})
	}
}

// ArchiveGameHandler persists a finished game to the database and drops it
// from the live store.
func ArchiveGameHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		live, id, ok := lookupGame(s, w, r)
		if !ok {
			return
		}
		round, _ := strconv.Atoi(r.URL.Query().Get("round"))
		packetName := r.URL.Query().Get("packetName")

		live.Mu.Lock()
		doc := qbj.ToMatch(live.Game, packetName, round)
		teams := live.Game.TeamNames()
		final := live.Game.FinalScore()
		live.Mu.Unlock()

		if err := database.ArchiveGame(r.Context(), id, doc, teams, final); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.Store.Delete(id)
		log.Infof("Archived game %s", id)
		writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
	}
}

// ListArchivedGamesHandler lists recently archived games.
func ListArchivedGamesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		games, err := database.ListArchivedGames(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, games)
	}
}

func lookupGame(s *Server, w http.ResponseWriter, r *http.Request) (*store.LiveGame, uuid.UUID, bool) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or missing game id")
		return nil, uuid.Nil, false
	}
	live, exists := s.Store.Get(id)
	if !exists {
		writeError(w, http.StatusNotFound, "game not found")
		return nil, uuid.Nil, false
	}
	return live, id, true
}
