package repo

import (
	"context"
	"database/sql"

	"lidereos/internal/domain"
)

func (r Repo) InsertFeedback(ctx context.Context, tx *sql.Tx, f domain.Feedback) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO feedbacks(id,member_id,type,behavior,impact,next_step,date) VALUES (?,?,?,?,?,?,?)`,
		f.ID, f.MemberID, f.Type, f.Behavior, f.Impact, f.NextStep, f.Date)
	return err
}

// ListFeedback returns feedback in insertion order, optionally for one member.
func (r Repo) ListFeedback(ctx context.Context, memberID string) ([]domain.Feedback, error) {
	return r.listFeedback(ctx, nil, memberID)
}

func (r Repo) listFeedback(ctx context.Context, tx *sql.Tx, memberID string) ([]domain.Feedback, error) {
	query := `SELECT id,member_id,type,behavior,impact,next_step,date FROM feedbacks`
	var args []any
	if memberID != "" {
		query += ` WHERE member_id=?`
		args = append(args, memberID)
	}
	rows, err := r.on(tx).QueryContext(ctx, query+` ORDER BY seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Feedback{}
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.MemberID, &f.Type, &f.Behavior, &f.Impact, &f.NextStep, &f.Date); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}
