// internal/database/archive.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quizbowl/qbscore/internal/qbj"
)

// ArchivedGame is one row of the games archive.
type ArchivedGame struct {
	ID         uuid.UUID       `json:"id"`
	PacketName string          `json:"packetName"`
	Round      string          `json:"round"`
	Scores     map[string]int  `json:"scores"`
	Document   json.RawMessage `json:"document"`
}

// ArchiveGame persists a completed game: the interchange document as jsonb
// plus denormalized final-score columns for listing. Upserts so re-archiving
// a corrected game replaces the earlier row.
func ArchiveGame(ctx context.Context, id uuid.UUID, doc *qbj.Match, teamNames []string, finalScore []int) error {
	if DB == nil {
		return nil
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal match document: %w", err)
	}
	scores := make(map[string]int, len(teamNames))
	for i, name := range teamNames {
		if i < len(finalScore) {
			scores[name] = finalScore[i]
		}
	}
	scoreJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, packet_name, round, scores, document, archived_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (id) DO UPDATE
			SET packet_name=$2, round=$3, scores=$4, document=$5, archived_at=now()
		`
		_, e := tx.Exec(ctx, q, id, doc.Packets, doc.Round, scoreJSON, payload)
		return e
	})
	if err != nil {
		return fmt.Errorf("tx upsert archived game: %w", err)
	}
	return nil
}

// GetArchivedGame fetches one archived game by ID.
func GetArchivedGame(ctx context.Context, id uuid.UUID) (*ArchivedGame, error) {
	if DB == nil {
		return nil, fmt.Errorf("no database configured")
	}
	row := DB.QueryRow(ctx,
		`SELECT id, packet_name, round, scores, document FROM games WHERE id=$1`, id)

	var out ArchivedGame
	var scoreJSON []byte
	if err := row.Scan(&out.ID, &out.PacketName, &out.Round, &scoreJSON, &out.Document); err != nil {
		return nil, fmt.Errorf("fetch archived game %s: %w", id, err)
	}
	if err := json.Unmarshal(scoreJSON, &out.Scores); err != nil {
		return nil, fmt.Errorf("decode archived scores: %w", err)
	}
	return &out, nil
}

// ListArchivedGames returns the most recently archived games, newest first.
func ListArchivedGames(ctx context.Context, limit int) ([]ArchivedGame, error) {
	if DB == nil {
		return nil, fmt.Errorf("no database configured")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := DB.Query(ctx,
		`SELECT id, packet_name, round, scores FROM games ORDER BY archived_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived games: %w", err)
	}
	defer rows.Close()

	var out []ArchivedGame
	for rows.Next() {
		var g ArchivedGame
		var scoreJSON []byte
		if err := rows.Scan(&g.ID, &g.PacketName, &g.Round, &scoreJSON); err != nil {
			return nil, fmt.Errorf("scan archived game: %w", err)
		}
		if err := json.Unmarshal(scoreJSON, &g.Scores); err != nil {
			return nil, fmt.Errorf("decode archived scores: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
