package repo

import (
	"context"
	"database/sql"
	"errors"

	"lidereos/internal/domain"
)

const memberColumns = `id,name,role,active,last_feedback_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (domain.Member, error) {
	var m domain.Member
	var active int
	var lastFeedback sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &m.Role, &active, &lastFeedback); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, ErrNotFound
		}
		return m, err
	}
	m.Active = active != 0
	m.LastFeedbackDate = stringPtr(lastFeedback)
	return m, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r Repo) InsertMember(ctx context.Context, tx *sql.Tx, m domain.Member) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO members(id,name,role,active,last_feedback_date) VALUES (?,?,?,?,?)`,
		m.ID, m.Name, m.Role, boolInt(m.Active), nullableStringPtr(m.LastFeedbackDate))
	return err
}

func (r Repo) UpdateMember(ctx context.Context, tx *sql.Tx, m domain.Member) error {
	return requireAffected(r.on(tx).ExecContext(ctx, `UPDATE members SET name=?, role=?, active=?, last_feedback_date=? WHERE id=?`,
		m.Name, m.Role, boolInt(m.Active), nullableStringPtr(m.LastFeedbackDate), m.ID))
}

// SetLastFeedbackDate records when the member last received feedback.
func (r Repo) SetLastFeedbackDate(ctx context.Context, tx *sql.Tx, memberID, date string) error {
	return requireAffected(r.on(tx).ExecContext(ctx, `UPDATE members SET last_feedback_date=? WHERE id=?`, date, memberID))
}

// DeleteMember removes only the member row; tasks and feedback keep their
// reference.
func (r Repo) DeleteMember(ctx context.Context, tx *sql.Tx, id string) error {
	return requireAffected(r.on(tx).ExecContext(ctx, `DELETE FROM members WHERE id=?`, id))
}

func (r Repo) GetMember(ctx context.Context, id string) (domain.Member, error) {
	return r.GetMemberTx(ctx, nil, id)
}

func (r Repo) GetMemberTx(ctx context.Context, tx *sql.Tx, id string) (domain.Member, error) {
	return scanMember(r.on(tx).QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id=?`, id))
}

// ListMembers returns members in insertion order.
func (r Repo) ListMembers(ctx context.Context) ([]domain.Member, error) {
	return r.listMembers(ctx, nil)
}

func (r Repo) listMembers(ctx context.Context, tx *sql.Tx) ([]domain.Member, error) {
	rows, err := r.on(tx).QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
