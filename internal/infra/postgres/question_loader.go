package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"cipherquest-service/internal/domain"
)

// QuestionLoader reads the active cipher question bank from Postgres over a
// pgx pool. It sits behind the Redis cache in production; the handful of
// columns here is deliberately the full row, answers included, because
// sessions snapshot questions server-side.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) ActiveQuestions(ctx context.Context) ([]domain.CipherQuestion, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, hint, category, problem_domain, cipher_type, difficulty, correct_answer, max_attempts, is_active
		FROM cipher_questions
		WHERE is_active = TRUE
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.CipherQuestion
	for rows.Next() {
		var q domain.CipherQuestion
		if err := rows.Scan(&q.ID, &q.Hint, &q.Category, &q.ProblemDomain, &q.CipherType, &q.Difficulty, &q.CorrectAnswer, &q.MaxAttempts, &q.IsActive); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}
