package repo

import (
	"context"
	"database/sql"

	"lidereos/internal/domain"
)

// Snapshot reads all four collections in one read transaction.
func (r Repo) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer tx.Rollback()
	var s domain.Snapshot
	if s.Members, err = r.listMembers(ctx, tx); err != nil {
		return s, err
	}
	if s.Tasks, err = r.listTasks(ctx, tx, TaskFilter{}); err != nil {
		return s, err
	}
	if s.Meetings, err = r.listMeetings(ctx, tx); err != nil {
		return s, err
	}
	if s.Feedbacks, err = r.listFeedback(ctx, tx, ""); err != nil {
		return s, err
	}
	return s, tx.Commit()
}

// IsEmpty reports whether no member, task, meeting or feedback is stored.
func (r Repo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT (SELECT count(*) FROM members)+(SELECT count(*) FROM tasks)+(SELECT count(*) FROM meetings)+(SELECT count(*) FROM feedbacks)`).Scan(&n)
	return n == 0, err
}
