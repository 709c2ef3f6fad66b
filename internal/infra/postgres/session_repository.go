package postgres

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/uptrace/bun"

	"cipherquest-service/internal/domain"
)

// SessionRepository persists quest sessions, including the five-question
// JSONB snapshot each session carries.
type SessionRepository struct {
	db *bun.DB
}

func NewSessionRepository(db *bun.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.QuestSession) error {
	_, err := r.db.NewInsert().Model(session).Exec(ctx)
	return err
}

func (r *SessionRepository) SessionByID(ctx context.Context, id string) (*domain.QuestSession, error) {
	session := new(domain.QuestSession)
	err := r.db.NewSelect().Model(session).Where("qs.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *SessionRepository) SessionByTeam(ctx context.Context, teamID string) (*domain.QuestSession, error) {
	session := new(domain.QuestSession)
	err := r.db.NewSelect().Model(session).Where("qs.team_id = ?", teamID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *SessionRepository) UpdateProgress(ctx context.Context, session *domain.QuestSession) error {
	res, err := r.db.NewUpdate().
		Model((*domain.QuestSession)(nil)).
		Set("score = ?", session.Score).
		Set("correct_answers = ?", session.CorrectAnswers).
		Set("current_question_index = ?", session.CurrentQuestionIndex).
		Where("id = ?", session.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrSessionNotFound)
}

// CompleteSession flips a session to completed exactly once. The conditional
// WHERE makes concurrent completion attempts race safely: only one caller
// observes won=true.
func (r *SessionRepository) CompleteSession(ctx context.Context, id string, completedAt time.Time, problemID *string) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.QuestSession)(nil)).
		Set("is_completed = TRUE").
		Set("completed_at = ?", completedAt).
		Set("assigned_problem_id = ?", problemID).
		Where("id = ?", id).
		Where("is_completed = FALSE").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *SessionRepository) DeleteSessionByTeam(ctx context.Context, teamID string) error {
	_, err := r.db.NewDelete().
		Model((*domain.QuestSession)(nil)).
		Where("team_id = ?", teamID).
		Exec(ctx)
	return err
}

func (r *SessionRepository) CompletedSessions(ctx context.Context, limit int) ([]*domain.QuestSession, error) {
	var sessions []*domain.QuestSession
	q := r.db.NewSelect().
		Model(&sessions).
		Where("qs.is_completed = TRUE").
		OrderExpr("qs.score DESC, qs.completed_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) CountQualifiedSessions(ctx context.Context) (int, error) {
	return r.db.NewSelect().
		Model((*domain.QuestSession)(nil)).
		Where("qs.correct_answers >= ?", domain.QualificationThreshold).
		Count(ctx)
}

func (r *SessionRepository) AverageSessionScore(ctx context.Context) (int, error) {
	var avg sql.NullFloat64
	err := r.db.NewSelect().
		Model((*domain.QuestSession)(nil)).
		ColumnExpr("AVG(qs.score)").
		Scan(ctx, &avg)
	if err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return int(math.Round(avg.Float64)), nil
}
