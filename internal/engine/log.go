package engine

import (
	"context"

	"lidereos/internal/domain"
	"lidereos/internal/repo"
)

// EventLog returns the audit log, newest first.
func (e Engine) EventLog(ctx context.Context, f repo.EventFilter) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, f)
}
