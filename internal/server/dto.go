package server

import (
	"encoding/json"

	"lidereos/internal/domain"
	"lidereos/internal/engine"
)

type CreateMemberRequest struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name" minLength:"1"`
	Role   string `json:"role,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

type UpdateMemberRequest struct {
	Name   *string `json:"name,omitempty"`
	Role   *string `json:"role,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

type CreateTaskRequest struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title" minLength:"1"`
	AssigneeID string `json:"assignee_id" minLength:"1"`
	Deadline   string `json:"deadline" minLength:"1" example:"2024-03-20"`
}

func (r CreateTaskRequest) options() engine.TaskCreateOptions {
	return engine.TaskCreateOptions{
		ID:         r.ID,
		Title:      r.Title,
		AssigneeID: r.AssigneeID,
		Deadline:   r.Deadline,
	}
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" enum:"pending,in_progress,done"`
}

type CreateMeetingRequest struct {
	ID        string              `json:"id,omitempty"`
	Date      string              `json:"date,omitempty" doc:"Defaults to now"`
	Successes string              `json:"successes,omitempty"`
	Blockers  string              `json:"blockers,omitempty"`
	Decisions string              `json:"decisions,omitempty"`
	Tasks     []CreateTaskRequest `json:"tasks,omitempty"`
}

type ReplaceMeetingRequest struct {
	Date      string `json:"date" minLength:"1"`
	Successes string `json:"successes,omitempty"`
	Blockers  string `json:"blockers,omitempty"`
	Decisions string `json:"decisions,omitempty"`
}

type CreateFeedbackRequest struct {
	ID       string `json:"id,omitempty"`
	MemberID string `json:"member_id" minLength:"1"`
	Type     string `json:"type" enum:"positive,adjustment,alignment"`
	Behavior string `json:"behavior,omitempty"`
	Impact   string `json:"impact,omitempty"`
	NextStep string `json:"next_step,omitempty"`
}

type RecommendationRequest struct {
	ID string `json:"id" minLength:"1" example:"member-1"`
}

type DismissalsResponse struct {
	Removed int64 `json:"removed"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password,omitempty"`
}

type LoginResponse struct {
	Token        string `json:"token,omitempty"`
	ActorID      string `json:"actor_id"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	AuthRequired bool   `json:"auth_required"`
}

type MemberList struct {
	Items []domain.Member `json:"items"`
}

type TaskList struct {
	Items []domain.Task `json:"items"`
}

type MeetingList struct {
	Items []domain.Meeting `json:"items"`
}

type FeedbackList struct {
	Items []domain.Feedback `json:"items"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func eventResponse(evt domain.Event) EventResponse {
	out := EventResponse{
		ID:         evt.ID,
		TS:         evt.TS,
		Type:       evt.Type,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
	}
	if evt.Payload != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(evt.Payload), &payload); err == nil {
			out.Payload = payload
		}
	}
	return out
}
