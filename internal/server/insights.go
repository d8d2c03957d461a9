package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"lidereos/internal/coherence"
	"lidereos/internal/engine"
	"lidereos/internal/lesson"
	"lidereos/internal/recommend"
)

func registerInsights(api huma.API, e engine.Engine, metrics *Metrics) {
	huma.Register(api, huma.Operation{
		OperationID: "get-coherence",
		Method:      http.MethodGet,
		Path:        "/coherence",
		Summary:     "Four-pillar coherence report",
	}, func(ctx context.Context, _ *struct{}) (*output[coherence.Report], error) {
		report, err := e.Coherence(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(report), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-recommendation",
		Method:      http.MethodGet,
		Path:        "/recommendation",
		Summary:     "The next recommended action",
	}, func(ctx context.Context, _ *struct{}) (*output[recommend.Recommendation], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := e.Recommendation(ctx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(rec), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dismiss-recommendation",
		Method:      http.MethodPost,
		Path:        "/recommendation/dismiss",
		Summary:     "Dismiss a recommendation and return the next one",
		Errors:      []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body RecommendationRequest `json:"body"`
	}) (*output[recommend.Recommendation], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		current, err := e.Recommendation(ctx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		next, err := e.Dismiss(ctx, actorID, input.Body.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if current.ID == input.Body.ID {
			metrics.Dismissals.WithLabelValues(string(current.Category)).Inc()
		}
		return respond(next), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "act-recommendation",
		Method:      http.MethodPost,
		Path:        "/recommendation/act",
		Summary:     "Take the primary action of the current recommendation",
		Errors:      []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body RecommendationRequest `json:"body"`
	}) (*output[engine.ActResult], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.Act(ctx, actorID, input.Body.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if res.Dismissed {
			metrics.Dismissals.WithLabelValues(string(res.Acted.Category)).Inc()
		}
		return respond(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-dismissals",
		Method:      http.MethodDelete,
		Path:        "/recommendation/dismissals",
		Summary:     "Forget every dismissed recommendation of the caller",
	}, func(ctx context.Context, _ *struct{}) (*output[DismissalsResponse], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.ResetDismissals(ctx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(DismissalsResponse{Removed: n}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-orientation",
		Method:      http.MethodGet,
		Path:        "/orientation",
		Summary:     "Lesson for the weakest pillar and the weekly checklist",
	}, func(ctx context.Context, _ *struct{}) (*output[lesson.Orientation], error) {
		o, err := e.Orientation(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(o), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-alerts",
		Method:      http.MethodGet,
		Path:        "/alerts",
		Summary:     "Home page alert counters",
	}, func(ctx context.Context, _ *struct{}) (*output[recommend.Alerts], error) {
		a, err := e.Alerts(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Coherence, recommendation and alerts in one read",
	}, func(ctx context.Context, _ *struct{}) (*output[engine.Dashboard], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.Dashboard(ctx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(d), nil
	})
}
