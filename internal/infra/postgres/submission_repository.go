package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"cipherquest-service/internal/domain"
)

// SubmissionRepository persists the one-per-team project submissions.
type SubmissionRepository struct {
	db *bun.DB
}

func NewSubmissionRepository(db *bun.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) SubmissionByTeam(ctx context.Context, teamID string) (*domain.Submission, error) {
	submission := new(domain.Submission)
	err := r.db.NewSelect().Model(submission).Where("s.team_id = ?", teamID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return submission, nil
}

// UpsertSubmission inserts or, on the team_id unique constraint, updates the
// existing row. QuestCompletionTime is set on first insert and never touched
// again.
func (r *SubmissionRepository) UpsertSubmission(ctx context.Context, submission *domain.Submission) error {
	_, err := r.db.NewInsert().
		Model(submission).
		On("CONFLICT (team_id) DO UPDATE").
		Set("ppt_url = EXCLUDED.ppt_url").
		Set("prototype_url = EXCLUDED.prototype_url").
		Set("github_url = EXCLUDED.github_url").
		Set("description = EXCLUDED.description").
		Set("is_submitted = EXCLUDED.is_submitted").
		Set("submission_time = EXCLUDED.submission_time").
		Exec(ctx)
	return err
}

func (r *SubmissionRepository) CountSubmitted(ctx context.Context) (int, error) {
	return r.db.NewSelect().
		Model((*domain.Submission)(nil)).
		Where("s.is_submitted = TRUE").
		Count(ctx)
}
