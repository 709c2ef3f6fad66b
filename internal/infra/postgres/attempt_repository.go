package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"cipherquest-service/internal/domain"
)

// AttemptRepository persists per-question guess histories.
type AttemptRepository struct {
	db *bun.DB
}

func NewAttemptRepository(db *bun.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// AttemptFor returns (nil, nil) when the team has not guessed this question
// yet; the engine treats that as a fresh attempt record.
func (r *AttemptRepository) AttemptFor(ctx context.Context, sessionID, questionID, teamID string) (*domain.QuestionAttempt, error) {
	attempt := new(domain.QuestionAttempt)
	err := r.db.NewSelect().
		Model(attempt).
		Where("qa.quest_session_id = ?", sessionID).
		Where("qa.question_id = ?", questionID).
		Where("qa.team_id = ?", teamID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *AttemptRepository) SaveAttempt(ctx context.Context, attempt *domain.QuestionAttempt) error {
	_, err := r.db.NewInsert().
		Model(attempt).
		On("CONFLICT (quest_session_id, question_id) DO UPDATE").
		Set("attempts = EXCLUDED.attempts").
		Set("is_correct = EXCLUDED.is_correct").
		Set("completed_at = EXCLUDED.completed_at").
		Exec(ctx)
	return err
}

func (r *AttemptRepository) AttemptsBySession(ctx context.Context, sessionID string) ([]*domain.QuestionAttempt, error) {
	var attempts []*domain.QuestionAttempt
	err := r.db.NewSelect().
		Model(&attempts).
		Where("qa.quest_session_id = ?", sessionID).
		Order("qa.question_id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *AttemptRepository) CorrectAttempts(ctx context.Context, sessionID string) ([]*domain.QuestionAttempt, error) {
	var attempts []*domain.QuestionAttempt
	err := r.db.NewSelect().
		Model(&attempts).
		Where("qa.quest_session_id = ?", sessionID).
		Where("qa.is_correct = TRUE").
		Order("qa.question_id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *AttemptRepository) DeleteAttemptsByTeam(ctx context.Context, teamID string) error {
	_, err := r.db.NewDelete().
		Model((*domain.QuestionAttempt)(nil)).
		Where("team_id = ?", teamID).
		Exec(ctx)
	return err
}
