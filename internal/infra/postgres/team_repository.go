package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"cipherquest-service/internal/domain"
)

// TeamRepository persists teams in Postgres via bun.
type TeamRepository struct {
	db *bun.DB
}

func NewTeamRepository(db *bun.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) CreateTeam(ctx context.Context, team *domain.Team) error {
	_, err := r.db.NewInsert().Model(team).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateTeam
	}
	return err
}

func (r *TeamRepository) TeamByID(ctx context.Context, id string) (*domain.Team, error) {
	team := new(domain.Team)
	err := r.db.NewSelect().Model(team).Where("t.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (r *TeamRepository) TeamByEmail(ctx context.Context, email string) (*domain.Team, error) {
	team := new(domain.Team)
	err := r.db.NewSelect().Model(team).Where("lower(t.lead_email) = lower(?)", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (r *TeamRepository) TeamByVerificationToken(ctx context.Context, token string) (*domain.Team, error) {
	team := new(domain.Team)
	err := r.db.NewSelect().Model(team).Where("t.verification_token = ?", token).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (r *TeamRepository) TeamExists(ctx context.Context, name, email string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Team)(nil)).
		Where("lower(t.team_name) = lower(?)", name).
		WhereOr("lower(t.lead_email) = lower(?)", email).
		Exists(ctx)
}

func (r *TeamRepository) UpdateTeam(ctx context.Context, team *domain.Team) error {
	res, err := r.db.NewUpdate().Model(team).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrTeamNotFound)
}

func (r *TeamRepository) UpdateQuestScore(ctx context.Context, id string, score int) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Team)(nil)).
		Set("quest_score = ?", score).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrTeamNotFound)
}

func (r *TeamRepository) SetQualification(ctx context.Context, id string, qualified bool) error {
	stage := 1
	if qualified {
		stage = 2
	}
	res, err := r.db.NewUpdate().
		Model((*domain.Team)(nil)).
		Set("current_stage = ?", stage).
		Set("is_disqualified = ?", !qualified).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrTeamNotFound)
}

func (r *TeamRepository) SetStage(ctx context.Context, id string, stage int) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Team)(nil)).
		Set("current_stage = ?", stage).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrTeamNotFound)
}

func (r *TeamRepository) ResetProgress(ctx context.Context, id string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Team)(nil)).
		Set("current_stage = 1").
		Set("is_disqualified = FALSE").
		Set("quest_score = 0").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrTeamNotFound)
}

func (r *TeamRepository) CountTeams(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*domain.Team)(nil)).Count(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.IntegrityViolation()
}

func requireAffected(res sql.Result, missing error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return missing
	}
	return nil
}
