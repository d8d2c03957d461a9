package engine

import (
	"context"
	"database/sql"
	"errors"

	"lidereos/internal/domain"
	"lidereos/internal/events"
	"lidereos/internal/repo"
)

type FeedbackCreateOptions struct {
	ID       string `json:"id"`
	MemberID string `json:"member_id" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=positive adjustment alignment"`
	Behavior string `json:"behavior"`
	Impact   string `json:"impact"`
	NextStep string `json:"next_step"`
	ActorID  string `json:"-"`
}

// AddFeedback appends feedback dated now and moves the member's last
// feedback date to the same instant.
func (e Engine) AddFeedback(ctx context.Context, opts FeedbackCreateOptions) (domain.Feedback, error) {
	if err := validateOptions(opts); err != nil {
		return domain.Feedback{}, err
	}
	f := domain.Feedback{
		ID:       e.newID(opts.ID),
		MemberID: opts.MemberID,
		Type:     opts.Type,
		Behavior: opts.Behavior,
		Impact:   opts.Impact,
		NextStep: opts.NextStep,
		Date:     domain.FormatTimestamp(e.now()),
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.Repo.GetMemberTx(ctx, tx, f.MemberID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return &domain.ValidationError{Field: "member_id", Value: f.MemberID, Reason: "member does not exist"}
			}
			return err
		}
		if err := e.Repo.InsertFeedback(ctx, tx, f); err != nil {
			return err
		}
		if err := e.Repo.SetLastFeedbackDate(ctx, tx, f.MemberID, f.Date); err != nil {
			return err
		}
		_, err := e.events().Append(ctx, tx, events.FeedbackAdd, "feedback", f.ID, opts.ActorID, events.EventPayload{
			"member_id": f.MemberID,
			"type":      f.Type,
		})
		return err
	})
	if err != nil {
		return domain.Feedback{}, err
	}
	return f, nil
}

func (e Engine) ListFeedback(ctx context.Context, memberID string) ([]domain.Feedback, error) {
	return e.Repo.ListFeedback(ctx, memberID)
}
