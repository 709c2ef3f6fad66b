package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"cipherquest-service/internal/domain"
)

// JudgingRepository persists panel verdicts.
type JudgingRepository struct {
	db *bun.DB
}

func NewJudgingRepository(db *bun.DB) *JudgingRepository {
	return &JudgingRepository{db: db}
}

func (r *JudgingRepository) CreateScore(ctx context.Context, score *domain.JudgingScore) error {
	_, err := r.db.NewInsert().Model(score).Exec(ctx)
	return err
}

func (r *JudgingRepository) ScoresRanked(ctx context.Context, limit int) ([]*domain.JudgingScore, error) {
	var scores []*domain.JudgingScore
	q := r.db.NewSelect().
		Model(&scores).
		OrderExpr("js.total_score DESC, js.created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return scores, nil
}

// ScoreByTeam returns (nil, nil) when the team has not been judged yet.
func (r *JudgingRepository) ScoreByTeam(ctx context.Context, teamID string) (*domain.JudgingScore, error) {
	score := new(domain.JudgingScore)
	err := r.db.NewSelect().
		Model(score).
		Where("js.team_id = ?", teamID).
		Order("js.created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return score, nil
}
