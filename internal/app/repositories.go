package app

import (
	"context"
	"time"

	"cipherquest-service/internal/domain"
)

// TeamRepository abstracts team storage (in-memory, Postgres, ...).
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team) error
	TeamByID(ctx context.Context, id string) (*domain.Team, error)
	TeamByEmail(ctx context.Context, email string) (*domain.Team, error)
	TeamByVerificationToken(ctx context.Context, token string) (*domain.Team, error)
	// TeamExists reports whether a team with the given name or email is registered.
	TeamExists(ctx context.Context, name, email string) (bool, error)
	UpdateTeam(ctx context.Context, team *domain.Team) error
	UpdateQuestScore(ctx context.Context, id string, score int) error
	// SetQualification records the gate outcome: stage 2 when qualified,
	// stage 1 and disqualified otherwise.
	SetQualification(ctx context.Context, id string, qualified bool) error
	SetStage(ctx context.Context, id string, stage int) error
	// ResetProgress puts the team back to stage 1 with a zero quest score.
	ResetProgress(ctx context.Context, id string) error
	CountTeams(ctx context.Context) (int, error)
}

// QuestionRepository serves the active cipher question pool.
type QuestionRepository interface {
	ActiveQuestions(ctx context.Context) ([]domain.CipherQuestion, error)
}

// SessionRepository stores quest sessions. CompleteSession is the only path
// that flips IsCompleted and it must be a conditional update guarded by
// is_completed = false; the boolean reports whether this call won the flip.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.QuestSession) error
	SessionByID(ctx context.Context, id string) (*domain.QuestSession, error)
	SessionByTeam(ctx context.Context, teamID string) (*domain.QuestSession, error)
	UpdateProgress(ctx context.Context, session *domain.QuestSession) error
	CompleteSession(ctx context.Context, id string, completedAt time.Time, problemID *string) (bool, error)
	DeleteSessionByTeam(ctx context.Context, teamID string) error
	CompletedSessions(ctx context.Context, limit int) ([]*domain.QuestSession, error)
	CountQualifiedSessions(ctx context.Context) (int, error)
	AverageSessionScore(ctx context.Context) (int, error)
}

// AttemptRepository stores per-question guess history. AttemptFor returns
// (nil, nil) when no attempt exists yet.
type AttemptRepository interface {
	AttemptFor(ctx context.Context, sessionID, questionID, teamID string) (*domain.QuestionAttempt, error)
	SaveAttempt(ctx context.Context, attempt *domain.QuestionAttempt) error
	AttemptsBySession(ctx context.Context, sessionID string) ([]*domain.QuestionAttempt, error)
	CorrectAttempts(ctx context.Context, sessionID string) ([]*domain.QuestionAttempt, error)
	DeleteAttemptsByTeam(ctx context.Context, teamID string) error
}

// ProblemRepository serves problem statements. The two active-problem lookups
// return (nil, nil) when nothing matches so the resolver can fall through.
type ProblemRepository interface {
	ProblemByID(ctx context.Context, id string) (*domain.ProblemStatement, error)
	ActiveProblemInDomains(ctx context.Context, domains []string) (*domain.ProblemStatement, error)
	AnyActiveProblem(ctx context.Context) (*domain.ProblemStatement, error)
	LatestActiveProblem(ctx context.Context) (*domain.ProblemStatement, error)
}

// SubmissionRepository stores the one-per-team project submissions.
type SubmissionRepository interface {
	SubmissionByTeam(ctx context.Context, teamID string) (*domain.Submission, error)
	// UpsertSubmission inserts or, keyed on team_id, updates the existing row.
	UpsertSubmission(ctx context.Context, submission *domain.Submission) error
	CountSubmitted(ctx context.Context) (int, error)
}

// JudgingRepository stores judging verdicts.
type JudgingRepository interface {
	CreateScore(ctx context.Context, score *domain.JudgingScore) error
	// ScoresRanked returns verdicts by total score descending; limit 0 means all.
	ScoresRanked(ctx context.Context, limit int) ([]*domain.JudgingScore, error)
	// ScoreByTeam returns (nil, nil) when the team has not been judged.
	ScoreByTeam(ctx context.Context, teamID string) (*domain.JudgingScore, error)
}

// ResetTokenRepository stores single-use password reset tokens.
type ResetTokenRepository interface {
	CreateResetToken(ctx context.Context, token *domain.PasswordResetToken) error
	ResetTokenByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, id string) error
}

// Repositories bundles every storage collaborator for constructor wiring.
type Repositories struct {
	Teams       TeamRepository
	Questions   QuestionRepository
	Sessions    SessionRepository
	Attempts    AttemptRepository
	Problems    ProblemRepository
	Submissions SubmissionRepository
	Judging     JudgingRepository
	ResetTokens ResetTokenRepository
}
