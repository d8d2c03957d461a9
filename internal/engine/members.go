package engine

import (
	"context"
	"database/sql"
	"strings"

	"lidereos/internal/domain"
	"lidereos/internal/events"
)

type MemberCreateOptions struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required,max=120"`
	Role    string `json:"role" validate:"max=120"`
	Active  *bool  `json:"active"`
	ActorID string `json:"-"`
}

// MemberUpdateOptions changes only the fields that are set.
type MemberUpdateOptions struct {
	ID      string  `json:"id" validate:"required"`
	Name    *string `json:"name" validate:"omitnil,min=1,max=120"`
	Role    *string `json:"role" validate:"omitempty,max=120"`
	Active  *bool   `json:"active"`
	ActorID string  `json:"-"`
}

func (e Engine) AddMember(ctx context.Context, opts MemberCreateOptions) (domain.Member, error) {
	opts.Name = strings.TrimSpace(opts.Name)
	if err := validateOptions(opts); err != nil {
		return domain.Member{}, err
	}
	m := domain.Member{
		ID:     e.newID(opts.ID),
		Name:   opts.Name,
		Role:   strings.TrimSpace(opts.Role),
		Active: true,
	}
	if opts.Active != nil {
		m.Active = *opts.Active
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertMember(ctx, tx, m); err != nil {
			return err
		}
		_, err := e.events().Append(ctx, tx, events.MemberAdd, "member", m.ID, opts.ActorID, events.EventPayload{"name": m.Name, "role": m.Role})
		return err
	})
	if err != nil {
		return domain.Member{}, err
	}
	return m, nil
}

func (e Engine) UpdateMember(ctx context.Context, opts MemberUpdateOptions) (domain.Member, error) {
	if opts.Name != nil {
		name := strings.TrimSpace(*opts.Name)
		opts.Name = &name
	}
	if err := validateOptions(opts); err != nil {
		return domain.Member{}, err
	}
	var m domain.Member
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		m, err = e.Repo.GetMemberTx(ctx, tx, opts.ID)
		if err != nil {
			return err
		}
		changed := events.EventPayload{}
		if opts.Name != nil {
			m.Name = *opts.Name
			changed["name"] = m.Name
		}
		if opts.Role != nil {
			m.Role = strings.TrimSpace(*opts.Role)
			changed["role"] = m.Role
		}
		if opts.Active != nil {
			m.Active = *opts.Active
			changed["active"] = m.Active
		}
		if len(changed) == 0 {
			return nil
		}
		if err := e.Repo.UpdateMember(ctx, tx, m); err != nil {
			return err
		}
		_, err = e.events().Append(ctx, tx, events.MemberUpdate, "member", m.ID, opts.ActorID, changed)
		return err
	})
	if err != nil {
		return domain.Member{}, err
	}
	return m, nil
}

// RemoveMember deletes the member only. Tasks and feedback that reference it
// are left as they are.
func (e Engine) RemoveMember(ctx context.Context, id, actorID string) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteMember(ctx, tx, id); err != nil {
			return err
		}
		_, err := e.events().Append(ctx, tx, events.MemberRemove, "member", id, actorID, nil)
		return err
	})
}

func (e Engine) ListMembers(ctx context.Context) ([]domain.Member, error) {
	return e.Repo.ListMembers(ctx)
}
