package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lidereos/internal/domain"
)

// Task list views.
const (
	TaskViewAll     = "all"
	TaskViewPending = "pending"
	TaskViewDelayed = "delayed"
)

const taskColumns = `id,title,assignee_id,deadline,status,created_at,meeting_id`

// TaskFilter narrows ListTasks. With an empty View tasks come back in
// insertion order; any named view is sorted by deadline, earliest first.
// Pending means not done. Delayed means not done with the deadline before Now.
type TaskFilter struct {
	View       string
	AssigneeID string
	MeetingID  string
	Now        time.Time
}

// ValidTaskView reports whether v names a list view.
func ValidTaskView(v string) bool {
	switch v {
	case "", TaskViewAll, TaskViewPending, TaskViewDelayed:
		return true
	}
	return false
}

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var meetingID sql.NullString
	if err := row.Scan(&t.ID, &t.Title, &t.AssigneeID, &t.Deadline, &t.Status, &t.CreatedAt, &meetingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, ErrNotFound
		}
		return t, err
	}
	t.MeetingID = stringPtr(meetingID)
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO tasks(id,title,assignee_id,deadline,status,created_at,meeting_id) VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.AssigneeID, t.Deadline, t.Status, t.CreatedAt, nullableStringPtr(t.MeetingID))
	return err
}

func (r Repo) UpdateTaskStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	return requireAffected(r.on(tx).ExecContext(ctx, `UPDATE tasks SET status=? WHERE id=?`, status, id))
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	return requireAffected(r.on(tx).ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id))
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return r.GetTaskTx(ctx, nil, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return scanTask(r.on(tx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilter) ([]domain.Task, error) {
	return r.listTasks(ctx, nil, f)
}

func (r Repo) listTasks(ctx context.Context, tx *sql.Tx, f TaskFilter) ([]domain.Task, error) {
	if !ValidTaskView(f.View) {
		return nil, &domain.ValidationError{Field: "view", Value: f.View, Reason: "must be one of all, pending, delayed"}
	}
	var clauses []string
	var args []any
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.MeetingID != "" {
		clauses = append(clauses, "meeting_id=?")
		args = append(args, f.MeetingID)
	}
	if f.View == TaskViewPending || f.View == TaskViewDelayed {
		clauses = append(clauses, "status<>?")
		args = append(args, domain.TaskDone)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.on(tx).QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if f.View == "" {
		return res, nil
	}
	return applyView(res, f)
}

// applyView filters delayed tasks and sorts by deadline. Deadlines are parsed
// because stored values mix dates and full timestamps.
func applyView(tasks []domain.Task, f TaskFilter) ([]domain.Task, error) {
	deadlines := make(map[string]time.Time, len(tasks))
	out := tasks[:0]
	for i, t := range tasks {
		d, err := domain.ParseTimestamp(fmt.Sprintf("tasks[%d].deadline", i), t.Deadline)
		if err != nil {
			return nil, err
		}
		if f.View == TaskViewDelayed && !d.Before(f.Now) {
			continue
		}
		deadlines[t.ID] = d
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return deadlines[out[i].ID].Before(deadlines[out[j].ID])
	})
	return out, nil
}
