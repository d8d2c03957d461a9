package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"lidereos/internal/domain"
	"lidereos/internal/events"
	"lidereos/internal/repo"
)

type MeetingCreateOptions struct {
	ID        string              `json:"id"`
	Date      string              `json:"date"`
	Successes string              `json:"successes"`
	Blockers  string              `json:"blockers"`
	Decisions string              `json:"decisions"`
	Tasks     []TaskCreateOptions `json:"tasks" validate:"dive"`
	ActorID   string              `json:"-"`
}

type MeetingReplaceOptions struct {
	ID        string `json:"id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Successes string `json:"successes"`
	Blockers  string `json:"blockers"`
	Decisions string `json:"decisions"`
	ActorID   string `json:"-"`
}

// MeetingRecord is a meeting with the tasks created alongside it.
type MeetingRecord struct {
	Meeting domain.Meeting `json:"meeting"`
	Tasks   []domain.Task  `json:"tasks"`
}

// AddMeeting records a meeting and its follow-up tasks in one transaction.
// The generated task count is fixed to len(opts.Tasks). An empty date means
// now.
func (e Engine) AddMeeting(ctx context.Context, opts MeetingCreateOptions) (MeetingRecord, error) {
	if err := validateOptions(opts); err != nil {
		return MeetingRecord{}, err
	}
	date := domain.FormatTimestamp(e.now())
	if strings.TrimSpace(opts.Date) != "" {
		var err error
		if date, err = normalizeTimestamp("date", opts.Date); err != nil {
			return MeetingRecord{}, err
		}
	}
	m := domain.Meeting{
		ID:                  e.newID(opts.ID),
		Date:                date,
		Successes:           opts.Successes,
		Blockers:            opts.Blockers,
		Decisions:           opts.Decisions,
		TasksGeneratedCount: len(opts.Tasks),
	}
	rec := MeetingRecord{Meeting: m, Tasks: []domain.Task{}}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertMeeting(ctx, tx, m); err != nil {
			return err
		}
		meetingID := m.ID
		for i, topts := range opts.Tasks {
			if topts.ActorID == "" {
				topts.ActorID = opts.ActorID
			}
			t, err := e.insertTask(ctx, tx, topts, &meetingID, fmt.Sprintf("tasks[%d].deadline", i))
			if err != nil {
				return err
			}
			rec.Tasks = append(rec.Tasks, t)
		}
		_, err := e.events().Append(ctx, tx, events.MeetingAdd, "meeting", m.ID, opts.ActorID, events.EventPayload{
			"date":                  m.Date,
			"tasks_generated_count": m.TasksGeneratedCount,
		})
		return err
	})
	if err != nil {
		return MeetingRecord{}, err
	}
	return rec, nil
}

// ReplaceMeeting overwrites date and notes. The generated task count stays
// as it was at creation.
func (e Engine) ReplaceMeeting(ctx context.Context, opts MeetingReplaceOptions) (domain.Meeting, error) {
	if err := validateOptions(opts); err != nil {
		return domain.Meeting{}, err
	}
	date, err := normalizeTimestamp("date", opts.Date)
	if err != nil {
		return domain.Meeting{}, err
	}
	var m domain.Meeting
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		m, err = e.Repo.GetMeetingTx(ctx, tx, opts.ID)
		if err != nil {
			return err
		}
		m.Date = date
		m.Successes = opts.Successes
		m.Blockers = opts.Blockers
		m.Decisions = opts.Decisions
		if err := e.Repo.ReplaceMeeting(ctx, tx, m); err != nil {
			return err
		}
		_, err = e.events().Append(ctx, tx, events.MeetingReplace, "meeting", m.ID, opts.ActorID, events.EventPayload{"date": m.Date})
		return err
	})
	if err != nil {
		return domain.Meeting{}, err
	}
	return m, nil
}

// RemoveMeeting deletes the meeting; its tasks stay and lose the link.
func (e Engine) RemoveMeeting(ctx context.Context, id, actorID string) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteMeeting(ctx, tx, id); err != nil {
			return err
		}
		_, err := e.events().Append(ctx, tx, events.MeetingRemove, "meeting", id, actorID, nil)
		return err
	})
}

func (e Engine) ListMeetings(ctx context.Context) ([]domain.Meeting, error) {
	return e.Repo.ListMeetings(ctx)
}

func (e Engine) GetMeeting(ctx context.Context, id string) (MeetingRecord, error) {
	m, err := e.Repo.GetMeeting(ctx, id)
	if err != nil {
		return MeetingRecord{}, err
	}
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilter{MeetingID: id})
	if err != nil {
		return MeetingRecord{}, err
	}
	return MeetingRecord{Meeting: m, Tasks: tasks}, nil
}
