package engine

import (
	"context"
	"database/sql"
	"errors"

	"lidereos/internal/domain"
	"lidereos/internal/events"
)

// ErrNotEmpty is returned by Seed when the store already holds records.
var ErrNotEmpty = errors.New("workspace is not empty")

func strPtr(s string) *string { return &s }

// Sample data loaded by Seed.
var (
	seedMembers = []domain.Member{
		{ID: "1", Name: "Ana Silva", Role: "Vendas", Active: true, LastFeedbackDate: strPtr("2023-10-01")},
		{ID: "2", Name: "Carlos Souza", Role: "Operacional", Active: true, LastFeedbackDate: strPtr("2023-10-15")},
		{ID: "3", Name: "Beatriz Lima", Role: "Atendimento", Active: true},
	}
	seedTasks = []domain.Task{
		{ID: "1", Title: "Atualizar planilha de clientes", AssigneeID: "1", Deadline: "2023-10-25", Status: domain.TaskPending, CreatedAt: "2023-10-20"},
		{ID: "2", Title: "Enviar proposta comercial", AssigneeID: "1", Deadline: "2023-10-20", Status: domain.TaskDone, CreatedAt: "2023-10-18"},
		{ID: "3", Title: "Organizar estoque", AssigneeID: "2", Deadline: "2023-10-22", Status: domain.TaskInProgress, CreatedAt: "2023-10-19"},
	}
	seedMeetings = []domain.Meeting{
		{ID: "1", Date: "2023-10-10", Successes: "Vendas subiram", Blockers: "Sistema lento", Decisions: "Trocar internet", TasksGeneratedCount: 2},
	}
)

// Seed loads the sample team into an empty store.
func (e Engine) Seed(ctx context.Context, actorID string) (domain.Snapshot, error) {
	empty, err := e.Repo.IsEmpty(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !empty {
		return domain.Snapshot{}, ErrNotEmpty
	}
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		for _, m := range seedMembers {
			if err := e.Repo.InsertMember(ctx, tx, m); err != nil {
				return err
			}
		}
		for _, m := range seedMeetings {
			if err := e.Repo.InsertMeeting(ctx, tx, m); err != nil {
				return err
			}
		}
		for _, t := range seedTasks {
			if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
				return err
			}
		}
		_, err := e.events().Append(ctx, tx, events.Seed, "workspace", "", actorID, events.EventPayload{
			"members":  len(seedMembers),
			"tasks":    len(seedTasks),
			"meetings": len(seedMeetings),
		})
		return err
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return e.Repo.Snapshot(ctx)
}
