package postgres

import (
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"cipherquest-service/internal/app"
)

// NewDB opens a bun handle over the pgdriver connector.
func NewDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// NewRepositories wires every Postgres-backed repository into the app bundle.
// Questions are served by the loader/cache pair, not from here.
func NewRepositories(db *bun.DB) *app.Repositories {
	return &app.Repositories{
		Teams:       NewTeamRepository(db),
		Sessions:    NewSessionRepository(db),
		Attempts:    NewAttemptRepository(db),
		Problems:    NewProblemRepository(db),
		Submissions: NewSubmissionRepository(db),
		Judging:     NewJudgingRepository(db),
		ResetTokens: NewResetTokenRepository(db),
	}
}
