package engine

import (
	"context"

	"lidereos/internal/coherence"
	"lidereos/internal/domain"
	"lidereos/internal/lesson"
	"lidereos/internal/recommend"
)

func (e Engine) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	return e.Repo.Snapshot(ctx)
}

// Coherence computes the report from the current store.
func (e Engine) Coherence(ctx context.Context) (coherence.Report, error) {
	s, err := e.Repo.Snapshot(ctx)
	if err != nil {
		return coherence.Report{}, err
	}
	return coherence.Compute(s.Members, s.Tasks, s.Meetings, s.Feedbacks, e.now())
}

// Recommendation selects the next action for actorID, skipping what that
// actor dismissed.
func (e Engine) Recommendation(ctx context.Context, actorID string) (recommend.Recommendation, error) {
	s, err := e.Repo.Snapshot(ctx)
	if err != nil {
		return recommend.Recommendation{}, err
	}
	dismissed, err := e.dismissedSet(ctx, actorID)
	if err != nil {
		return recommend.Recommendation{}, err
	}
	return recommend.Select(s.Members, s.Tasks, s.Meetings, e.now(), dismissed)
}

func (e Engine) Alerts(ctx context.Context) (recommend.Alerts, error) {
	s, err := e.Repo.Snapshot(ctx)
	if err != nil {
		return recommend.Alerts{}, err
	}
	return recommend.ComputeAlerts(s.Members, s.Tasks, s.Meetings, e.now())
}

// Orientation returns the lesson for the current worst pillar.
func (e Engine) Orientation(ctx context.Context) (lesson.Orientation, error) {
	report, err := e.Coherence(ctx)
	if err != nil {
		return lesson.Orientation{}, err
	}
	catalog, checklist := lesson.Defaults, lesson.DefaultChecklist
	if e.Config != nil {
		if len(e.Config.Lessons) > 0 {
			catalog = e.Config.Lessons
		}
		if e.Config.Checklist != nil {
			checklist = e.Config.Checklist
		}
	}
	return lesson.Orient(report, catalog, checklist), nil
}

// Dashboard is the home screen: the report, the next action and the alert
// counters computed against the same clock reading.
type Dashboard struct {
	Coherence      coherence.Report         `json:"coherence"`
	Recommendation recommend.Recommendation `json:"recommendation"`
	Alerts         recommend.Alerts         `json:"alerts"`
}

func (e Engine) Dashboard(ctx context.Context, actorID string) (Dashboard, error) {
	s, err := e.Repo.Snapshot(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	dismissed, err := e.dismissedSet(ctx, actorID)
	if err != nil {
		return Dashboard{}, err
	}
	now := e.now()
	var d Dashboard
	if d.Coherence, err = coherence.Compute(s.Members, s.Tasks, s.Meetings, s.Feedbacks, now); err != nil {
		return Dashboard{}, err
	}
	if d.Recommendation, err = recommend.Select(s.Members, s.Tasks, s.Meetings, now, dismissed); err != nil {
		return Dashboard{}, err
	}
	if d.Alerts, err = recommend.ComputeAlerts(s.Members, s.Tasks, s.Meetings, now); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
