package repo

import (
	"context"
	"database/sql"
)

// InsertDismissal records that actorID dismissed a recommendation. Dismissing
// twice keeps the first timestamp.
func (r Repo) InsertDismissal(ctx context.Context, tx *sql.Tx, actorID, recommendationID, at string) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO dismissals(actor_id,recommendation_id,dismissed_at) VALUES (?,?,?)
ON CONFLICT(actor_id,recommendation_id) DO NOTHING`, actorID, recommendationID, at)
	return err
}

// DeleteDismissals clears every dismissal of actorID and returns how many
// were removed.
func (r Repo) DeleteDismissals(ctx context.Context, tx *sql.Tx, actorID string) (int64, error) {
	res, err := r.on(tx).ExecContext(ctx, `DELETE FROM dismissals WHERE actor_id=?`, actorID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListDismissals returns the dismissed recommendation ids of actorID, oldest
// first.
func (r Repo) ListDismissals(ctx context.Context, actorID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT recommendation_id FROM dismissals WHERE actor_id=? ORDER BY dismissed_at, rowid`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}
