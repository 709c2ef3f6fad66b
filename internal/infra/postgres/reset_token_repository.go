package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"cipherquest-service/internal/domain"
)

// ResetTokenRepository persists single-use password reset tokens.
type ResetTokenRepository struct {
	db *bun.DB
}

func NewResetTokenRepository(db *bun.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) CreateResetToken(ctx context.Context, token *domain.PasswordResetToken) error {
	_, err := r.db.NewInsert().Model(token).Exec(ctx)
	return err
}

func (r *ResetTokenRepository) ResetTokenByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	reset := new(domain.PasswordResetToken)
	err := r.db.NewSelect().Model(reset).Where("prt.token = ?", token).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return reset, nil
}

func (r *ResetTokenRepository) MarkResetTokenUsed(ctx context.Context, id string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.PasswordResetToken)(nil)).
		Set("used = TRUE").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrInvalidToken)
}
