package repo

import (
	"context"
	"database/sql"
	"errors"

	"lidereos/internal/domain"
)

const meetingColumns = `id,date,successes,blockers,decisions,tasks_generated_count`

func scanMeeting(row rowScanner) (domain.Meeting, error) {
	var m domain.Meeting
	if err := row.Scan(&m.ID, &m.Date, &m.Successes, &m.Blockers, &m.Decisions, &m.TasksGeneratedCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, ErrNotFound
		}
		return m, err
	}
	return m, nil
}

func (r Repo) InsertMeeting(ctx context.Context, tx *sql.Tx, m domain.Meeting) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO meetings(id,date,successes,blockers,decisions,tasks_generated_count) VALUES (?,?,?,?,?,?)`,
		m.ID, m.Date, m.Successes, m.Blockers, m.Decisions, m.TasksGeneratedCount)
	return err
}

// ReplaceMeeting overwrites the date and text fields. The generated task count
// is fixed at creation and never written here.
func (r Repo) ReplaceMeeting(ctx context.Context, tx *sql.Tx, m domain.Meeting) error {
	return requireAffected(r.on(tx).ExecContext(ctx, `UPDATE meetings SET date=?, successes=?, blockers=?, decisions=? WHERE id=?`,
		m.Date, m.Successes, m.Blockers, m.Decisions, m.ID))
}

func (r Repo) DeleteMeeting(ctx context.Context, tx *sql.Tx, id string) error {
	return requireAffected(r.on(tx).ExecContext(ctx, `DELETE FROM meetings WHERE id=?`, id))
}

func (r Repo) GetMeeting(ctx context.Context, id string) (domain.Meeting, error) {
	return r.GetMeetingTx(ctx, nil, id)
}

func (r Repo) GetMeetingTx(ctx context.Context, tx *sql.Tx, id string) (domain.Meeting, error) {
	return scanMeeting(r.on(tx).QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id=?`, id))
}

// ListMeetings returns meetings in insertion order.
func (r Repo) ListMeetings(ctx context.Context) ([]domain.Meeting, error) {
	return r.listMeetings(ctx, nil)
}

func (r Repo) listMeetings(ctx context.Context, tx *sql.Tx) ([]domain.Meeting, error) {
	rows, err := r.on(tx).QueryContext(ctx, `SELECT `+meetingColumns+` FROM meetings ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
