package engine

import (
	"context"
	"database/sql"
	"strings"

	"lidereos/internal/domain"
	"lidereos/internal/events"
	"lidereos/internal/recommend"
)

// ActResult tells the caller where to go after acting on a recommendation.
// An empty Target means the item was acknowledged and dismissed.
type ActResult struct {
	Acted     recommend.Recommendation `json:"acted"`
	Target    string                   `json:"target,omitempty"`
	Dismissed bool                     `json:"dismissed"`
	Next      recommend.Recommendation `json:"next"`
}

func actorOrDefault(actorID string) string {
	if actorID == "" {
		return events.DefaultActor
	}
	return actorID
}

func (e Engine) dismissedSet(ctx context.Context, actorID string) (recommend.Set, error) {
	ids, err := e.Repo.ListDismissals(ctx, actorOrDefault(actorID))
	if err != nil {
		return nil, err
	}
	return recommend.NewSet(ids...), nil
}

// Dismissed lists the recommendation ids actorID dismissed, oldest first.
func (e Engine) Dismissed(ctx context.Context, actorID string) ([]string, error) {
	return e.Repo.ListDismissals(ctx, actorOrDefault(actorID))
}

// Dismiss hides a recommendation for actorID and returns the one that takes
// its place. Dismissals never expire on their own.
func (e Engine) Dismiss(ctx context.Context, actorID, recommendationID string) (recommend.Recommendation, error) {
	recommendationID = strings.TrimSpace(recommendationID)
	if recommendationID == "" {
		return recommend.Recommendation{}, &domain.ValidationError{Field: "id", Reason: "is required"}
	}
	actorID = actorOrDefault(actorID)
	if err := e.dismiss(ctx, actorID, recommendationID); err != nil {
		return recommend.Recommendation{}, err
	}
	return e.Recommendation(ctx, actorID)
}

func (e Engine) dismiss(ctx context.Context, actorID, recommendationID string) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertDismissal(ctx, tx, actorID, recommendationID, domain.FormatTimestamp(e.now())); err != nil {
			return err
		}
		_, err := e.events().Append(ctx, tx, events.RecDismiss, "recommendation", recommendationID, actorID, nil)
		return err
	})
}

// Act performs the primary action of the current recommendation. Navigating
// actions only report their target; the rest dismiss the item.
func (e Engine) Act(ctx context.Context, actorID, recommendationID string) (ActResult, error) {
	actorID = actorOrDefault(actorID)
	current, err := e.Recommendation(ctx, actorID)
	if err != nil {
		return ActResult{}, err
	}
	if recommendationID != "" && recommendationID != current.ID {
		return ActResult{}, &domain.ValidationError{Field: "id", Value: recommendationID, Reason: "is not the current recommendation"}
	}
	res := ActResult{Acted: current, Target: current.Primary.Target}
	if current.Navigates() {
		res.Next = current
		return res, nil
	}
	if err := e.dismiss(ctx, actorID, current.ID); err != nil {
		return ActResult{}, err
	}
	res.Dismissed = true
	if res.Next, err = e.Recommendation(ctx, actorID); err != nil {
		return ActResult{}, err
	}
	return res, nil
}

// ResetDismissals forgets every dismissal of actorID.
func (e Engine) ResetDismissals(ctx context.Context, actorID string) (int64, error) {
	actorID = actorOrDefault(actorID)
	var n int64
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if n, err = e.Repo.DeleteDismissals(ctx, tx, actorID); err != nil {
			return err
		}
		_, err = e.events().Append(ctx, tx, events.RecReset, "recommendation", "", actorID, events.EventPayload{"cleared": n})
		return err
	})
	return n, err
}
