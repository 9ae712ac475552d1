// internal/database/results.go
package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wordrelay/relay/internal/analytics"
	"github.com/wordrelay/relay/internal/models"
)

// ResultRow is one participant's final standing in an archived session.
type ResultRow struct {
	ParticipantID string
	Name          string
	Score         int
	Progress      int
	Lives         int
	Rank          int
}

// ArchiveSession writes the final state of an ended session: one session
// row plus a score-ranked row per participant, in a single transaction.
func ArchiveSession(ctx context.Context, sess models.Session) error {
	standings := analytics.Standings(sess.Roster())

	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO sessions (
			code, owner_name, mode, duration_sec, created_at, ended_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := tx.Exec(ctx, q,
			sess.Code,
			sess.OwnerName,
			string(sess.Mode),
			sess.Duration,
			time.UnixMilli(sess.CreatedAt),
			time.UnixMilli(sess.StatusChangedAt),
		)
		if err != nil {
			return err
		}

		rq := `
		INSERT INTO session_results (
			id, session_code, participant_id, name,
			score, progress, lives, rank
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		for i, p := range standings {
			_, err := tx.Exec(ctx, rq,
				uuid.New(),
				sess.Code,
				p.ID,
				p.Name,
				p.Score,
				p.Progress,
				p.Lives,
				i+1,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetFinalStandings fetches the archived standings for a session code,
// best score first.
func GetFinalStandings(ctx context.Context, code string) ([]ResultRow, error) {
	q := `
	SELECT participant_id, name, score, progress, lives, rank
	FROM session_results
	WHERE session_code = $1
	ORDER BY rank
	`
	rows, err := DB.Query(ctx, q, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(&r.ParticipantID, &r.Name, &r.Score, &r.Progress, &r.Lives, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
