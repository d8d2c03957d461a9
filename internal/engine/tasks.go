package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"lidereos/internal/domain"
	"lidereos/internal/events"
	"lidereos/internal/repo"
)

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ID         string `json:"id"`
	Title      string `json:"title" validate:"required,max=200"`
	AssigneeID string `json:"assignee_id" validate:"required"`
	Deadline   string `json:"deadline" validate:"required"`
	ActorID    string `json:"-"`
}

// TaskListOptions selects a task view; see repo.TaskFilter.
type TaskListOptions struct {
	View       string
	AssigneeID string
	MeetingID  string
}

// AddTask creates a pending task stamped with the current time. The assignee
// must exist.
func (e Engine) AddTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	var t domain.Task
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = e.insertTask(ctx, tx, opts, nil, "deadline")
		return err
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) insertTask(ctx context.Context, tx *sql.Tx, opts TaskCreateOptions, meetingID *string, deadlineField string) (domain.Task, error) {
	opts.Title = strings.TrimSpace(opts.Title)
	if err := validateOptions(opts); err != nil {
		return domain.Task{}, err
	}
	deadline, err := normalizeTimestamp(deadlineField, opts.Deadline)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := e.Repo.GetMemberTx(ctx, tx, opts.AssigneeID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Task{}, &domain.ValidationError{Field: "assignee_id", Value: opts.AssigneeID, Reason: "member does not exist"}
		}
		return domain.Task{}, err
	}
	t := domain.Task{
		ID:         e.newID(opts.ID),
		Title:      opts.Title,
		AssigneeID: opts.AssigneeID,
		Deadline:   deadline,
		Status:     domain.TaskPending,
		CreatedAt:  domain.FormatTimestamp(e.now()),
		MeetingID:  meetingID,
	}
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	payload := events.EventPayload{"title": t.Title, "assignee_id": t.AssigneeID, "deadline": t.Deadline}
	if meetingID != nil {
		payload["meeting_id"] = *meetingID
	}
	if _, err := e.events().Append(ctx, tx, events.TaskAdd, "task", t.ID, opts.ActorID, payload); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// UpdateTaskStatus moves a task to any of the three statuses.
func (e Engine) UpdateTaskStatus(ctx context.Context, id, status, actorID string) (domain.Task, error) {
	if !domain.ValidTaskStatus(status) {
		return domain.Task{}, &domain.ValidationError{Field: "status", Value: status, Reason: "must be one of pending, in_progress, done"}
	}
	var t domain.Task
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = e.Repo.GetTaskTx(ctx, tx, id)
		if err != nil {
			return err
		}
		from := t.Status
		if err := e.Repo.UpdateTaskStatus(ctx, tx, id, status); err != nil {
			return err
		}
		t.Status = status
		_, err = e.events().Append(ctx, tx, events.TaskStatus, "task", id, actorID, events.EventPayload{"from": from, "to": status})
		return err
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) RemoveTask(ctx context.Context, id, actorID string) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteTask(ctx, tx, id); err != nil {
			return err
		}
		_, err := e.events().Append(ctx, tx, events.TaskRemove, "task", id, actorID, nil)
		return err
	})
}

func (e Engine) ListTasks(ctx context.Context, opts TaskListOptions) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, repo.TaskFilter{
		View:       opts.View,
		AssigneeID: opts.AssigneeID,
		MeetingID:  opts.MeetingID,
		Now:        e.now(),
	})
}
