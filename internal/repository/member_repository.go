package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/campaign-dispatch/internal/model"
)

// MemberRepositoryInterface defines methods used by service
type MemberRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.Member, error)
	ListAll(ctx context.Context) ([]model.Member, error)
	ListByIDs(ctx context.Context, ids []int) ([]model.Member, error)
}

// MemberRepository is the concrete implementation
type MemberRepository struct {
	DB *sqlx.DB
}

const memberColumns = `id, name, name_bangla, email, mobile, membership_code, membership_type, batch, extra`

// GetByID fetches a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, id int) (*model.Member, error) {
	var m model.Member
	if err := r.DB.GetContext(ctx, &m, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // not found
		}
		return nil, err
	}
	return &m, nil
}

// ListAll fetches every member; the audience resolver filters in memory.
func (r *MemberRepository) ListAll(ctx context.Context) ([]model.Member, error) {
	members := []model.Member{}
	if err := r.DB.SelectContext(ctx, &members, `SELECT `+memberColumns+` FROM members ORDER BY id`); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *MemberRepository) ListByIDs(ctx context.Context, ids []int) ([]model.Member, error) {
	members := []model.Member{}
	if len(ids) == 0 {
		return members, nil
	}
	query, args, err := sqlx.In(`SELECT `+memberColumns+` FROM members WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	if err := r.DB.SelectContext(ctx, &members, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return members, nil
}

var _ MemberRepositoryInterface = (*MemberRepository)(nil)
