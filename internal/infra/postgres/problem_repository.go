package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"cipherquest-service/internal/domain"
)

// ProblemRepository reads problem statements. Statements are seeded by
// organizers out of band, so there is no write path here.
type ProblemRepository struct {
	db *bun.DB
}

func NewProblemRepository(db *bun.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

func (r *ProblemRepository) ProblemByID(ctx context.Context, id string) (*domain.ProblemStatement, error) {
	problem := new(domain.ProblemStatement)
	err := r.db.NewSelect().Model(problem).Where("ps.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProblemNotFound
	}
	if err != nil {
		return nil, err
	}
	return problem, nil
}

// ActiveProblemInDomains returns (nil, nil) when no active statement matches
// any of the given domains; the caller falls back to AnyActiveProblem.
func (r *ProblemRepository) ActiveProblemInDomains(ctx context.Context, domains []string) (*domain.ProblemStatement, error) {
	if len(domains) == 0 {
		return nil, nil
	}
	problem := new(domain.ProblemStatement)
	err := r.db.NewSelect().
		Model(problem).
		Where("ps.is_active = TRUE").
		Where("ps.domain IN (?)", bun.In(domains)).
		Order("ps.created_at ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return problem, nil
}

func (r *ProblemRepository) AnyActiveProblem(ctx context.Context) (*domain.ProblemStatement, error) {
	problem := new(domain.ProblemStatement)
	err := r.db.NewSelect().
		Model(problem).
		Where("ps.is_active = TRUE").
		Order("ps.created_at ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return problem, nil
}

func (r *ProblemRepository) LatestActiveProblem(ctx context.Context) (*domain.ProblemStatement, error) {
	problem := new(domain.ProblemStatement)
	err := r.db.NewSelect().
		Model(problem).
		Where("ps.is_active = TRUE").
		Order("ps.created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProblemNotFound
	}
	if err != nil {
		return nil, err
	}
	return problem, nil
}
