// Package events appends to the audit log of store mutations.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"lidereos/internal/domain"
)

// Event types written by the engine.
const (
	MemberAdd      = "member.add"
	MemberUpdate   = "member.update"
	MemberRemove   = "member.remove"
	TaskAdd        = "task.add"
	TaskStatus     = "task.status"
	TaskRemove     = "task.remove"
	MeetingAdd     = "meeting.add"
	MeetingReplace = "meeting.replace"
	MeetingRemove  = "meeting.remove"
	FeedbackAdd    = "feedback.add"
	RecDismiss     = "recommendation.dismiss"
	RecReset       = "recommendation.reset"
	Seed           = "workspace.seed"
)

// DefaultActor is recorded when a mutation has no authenticated actor.
const DefaultActor = "local-user"

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append inserts one event inside tx and returns its id.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload EventPayload) (int64, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if actorID == "" {
		actorID = DefaultActor
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal event payload: %w", err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		domain.FormatTimestamp(w.Now()), evtType, entityKind, nullable(entityID), actorID, string(data))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
