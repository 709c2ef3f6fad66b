package app

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cipherquest-service/internal/domain"
	"cipherquest-service/internal/notify"
)

// LeaderboardCache is an optional read-through cache for the quest
// leaderboard (Redis in production, absent in tests).
type LeaderboardCache interface {
	GetQuestLeaderboard(ctx context.Context) ([]domain.QuestLeaderboardEntry, bool)
	SetQuestLeaderboard(ctx context.Context, entries []domain.QuestLeaderboardEntry)
	InvalidateQuestLeaderboard(ctx context.Context) error
}

// QuestService owns the quest session lifecycle: creation, guess evaluation,
// scoring, time-limit enforcement and the completion/qualification decision.
type QuestService struct {
	repos    *Repositories
	notifier notify.Notifier
	now      func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand

	leaderboardCache LeaderboardCache
}

// QuestOption customizes a QuestService, mainly for deterministic tests.
type QuestOption func(*QuestService)

// WithClock injects a deterministic clock.
func WithClock(now func() time.Time) QuestOption {
	return func(s *QuestService) { s.now = now }
}

// WithRand injects a seeded source for question sampling.
func WithRand(rnd *rand.Rand) QuestOption {
	return func(s *QuestService) { s.rnd = rnd }
}

// WithLeaderboardCache enables leaderboard caching.
func WithLeaderboardCache(cache LeaderboardCache) QuestOption {
	return func(s *QuestService) { s.leaderboardCache = cache }
}

func NewQuestService(repos *Repositories, notifier notify.Notifier, opts ...QuestOption) *QuestService {
	s := &QuestService{
		repos:    repos,
		notifier: notifier,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a quest session for the team, snapshotting five random active
// questions. Repeated starts return the existing session unchanged; the
// boolean reports whether this call created it.
func (s *QuestService) Start(ctx context.Context, teamID string) (*domain.QuestSession, bool, error) {
	team, err := s.repos.Teams.TeamByID(ctx, teamID)
	if err != nil {
		return nil, false, err
	}
	if team.IsDisqualified {
		return nil, false, domain.ErrTeamDisqualified
	}

	existing, err := s.repos.Sessions.SessionByTeam(ctx, teamID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, false, err
	}

	pool, err := s.repos.Questions.ActiveQuestions(ctx)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	questions, err := sampleQuestions(s.rnd, pool, domain.QuestQuestionCount)
	s.mu.Unlock()
	if err != nil {
		return nil, false, err
	}

	session := &domain.QuestSession{
		ID:            uuid.NewString(),
		TeamID:        teamID,
		Questions:     questions,
		StartedAt:     s.now().UTC(),
		QuestDuration: domain.QuestDuration,
	}
	if err := s.repos.Sessions.CreateSession(ctx, session); err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// SubmitGuess evaluates one guess against the session's snapshot. A guess that
// observes an expired clock force-completes the session and returns
// *domain.TimeExceededError carrying the outcome.
func (s *QuestService) SubmitGuess(ctx context.Context, sessionID, questionID, guess, teamID string) (*domain.GuessResult, error) {
	if sessionID == "" || questionID == "" || guess == "" || teamID == "" {
		return nil, domain.ErrInvalidInput
	}

	session, err := s.repos.Sessions.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TeamID != teamID {
		return nil, domain.ErrSessionNotFound
	}
	if session.IsCompleted {
		return nil, domain.ErrQuestCompleted
	}

	elapsed := int(math.Round(s.now().Sub(session.StartedAt).Seconds()))
	if elapsed > session.QuestDuration {
		outcome, err := s.complete(ctx, session, elapsed)
		if err != nil {
			return nil, err
		}
		return nil, &domain.TimeExceededError{ElapsedSeconds: elapsed, Qualified: outcome.qualified}
	}

	question, ok := session.QuestionByID(questionID)
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}

	attempt, err := s.repos.Attempts.AttemptFor(ctx, session.ID, questionID, teamID)
	if err != nil {
		return nil, err
	}
	if attempt != nil && attempt.IsCorrect {
		return nil, domain.ErrAlreadySolved
	}
	if attempt != nil && len(attempt.Attempts) >= question.MaxAttempts {
		return nil, domain.ErrMaxAttemptsReached
	}

	isCorrect := strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(question.CorrectAnswer))

	if attempt == nil {
		attempt = &domain.QuestionAttempt{
			ID:             uuid.NewString(),
			QuestSessionID: session.ID,
			QuestionID:     questionID,
			TeamID:         teamID,
		}
	}
	attempt.Attempts = append(attempt.Attempts, guess)
	if isCorrect {
		attempt.IsCorrect = true
		completedAt := s.now().UTC()
		attempt.CompletedAt = &completedAt
	}
	if err := s.repos.Attempts.SaveAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	if isCorrect {
		session.Score += domain.PointsPerDifficulty * question.Difficulty
		session.CorrectAnswers++
		if session.CurrentQuestionIndex < domain.QuestQuestionCount-1 {
			session.CurrentQuestionIndex++
		}
		if err := s.repos.Sessions.UpdateProgress(ctx, session); err != nil {
			return nil, err
		}
		if err := s.repos.Teams.UpdateQuestScore(ctx, teamID, session.Score); err != nil {
			return nil, err
		}
	}

	result := &domain.GuessResult{
		IsCorrect:         isCorrect,
		Feedback:          domain.Feedback(guess, question.CorrectAnswer),
		Attempts:          len(attempt.Attempts),
		MaxAttempts:       question.MaxAttempts,
		AttemptsRemaining: max(0, question.MaxAttempts-len(attempt.Attempts)),
		TimeElapsed:       elapsed,
		TimeRemaining:     max(0, session.QuestDuration-elapsed),
		CorrectAnswers:    session.CorrectAnswers,
		TotalQuestions:    domain.QuestQuestionCount,
		Score:             session.Score,
	}

	// Terminal check: threshold reached or all five slots exhausted. Both
	// paths funnel through the one completion routine.
	if session.CorrectAnswers >= domain.QualificationThreshold ||
		session.CurrentQuestionIndex >= domain.QuestQuestionCount-1 {
		outcome, err := s.complete(ctx, session, elapsed)
		if err != nil {
			return nil, err
		}
		result.QuestCompleted = true
		result.Qualified = outcome.qualified
		result.AssignedProblem = outcome.problem
	}
	return result, nil
}

type completionOutcome struct {
	qualified bool
	problem   *domain.ProblemStatement
}

// complete is the shared terminal routine for the threshold and timeout
// paths. The conditional session update makes completion at-most-once; the
// loser of a concurrent race performs no side effects.
func (s *QuestService) complete(ctx context.Context, session *domain.QuestSession, elapsedSeconds int) (completionOutcome, error) {
	qualified := session.CorrectAnswers >= domain.QualificationThreshold

	var problem *domain.ProblemStatement
	if qualified {
		var err error
		problem, err = s.resolveProblem(ctx, session)
		if err != nil {
			return completionOutcome{}, err
		}
		if problem == nil {
			log.Printf("team %s qualified but no active problem statements exist", session.TeamID)
		}
	}

	var problemID *string
	if problem != nil {
		problemID = &problem.ID
	}
	completedAt := s.now().UTC()
	won, err := s.repos.Sessions.CompleteSession(ctx, session.ID, completedAt, problemID)
	if err != nil {
		return completionOutcome{}, err
	}
	if !won {
		current, err := s.repos.Sessions.SessionByID(ctx, session.ID)
		if err != nil {
			return completionOutcome{}, err
		}
		*session = *current
		return completionOutcome{qualified: current.CorrectAnswers >= domain.QualificationThreshold}, nil
	}

	session.IsCompleted = true
	session.CompletedAt = &completedAt
	session.AssignedProblemID = problemID

	if err := s.repos.Teams.SetQualification(ctx, session.TeamID, qualified); err != nil {
		return completionOutcome{}, err
	}

	if qualified && problem != nil {
		stub := &domain.Submission{
			ID:                  uuid.NewString(),
			TeamID:              session.TeamID,
			ProblemID:           problem.ID,
			QuestCompletionTime: elapsedSeconds,
		}
		if err := s.repos.Submissions.UpsertSubmission(ctx, stub); err != nil {
			return completionOutcome{}, err
		}
		if team, err := s.repos.Teams.TeamByID(ctx, session.TeamID); err == nil {
			if !s.notifier.Notify(ctx, notify.KindQualification, team.LeadEmail, notify.Payload{
				"team_name":           team.TeamName,
				"problem_title":       problem.Title,
				"problem_description": problem.Description,
			}) {
				log.Printf("qualification notification for team %s not delivered", session.TeamID)
			}
		}
	}

	if s.leaderboardCache != nil {
		if err := s.leaderboardCache.InvalidateQuestLeaderboard(ctx); err != nil {
			log.Printf("leaderboard cache invalidation failed: %v", err)
		}
	}

	log.Printf("team %s completed quest: %d/%d correct, qualified=%v",
		session.TeamID, session.CorrectAnswers, domain.QuestQuestionCount, qualified)
	return completionOutcome{qualified: qualified, problem: problem}, nil
}

// resolveProblem picks a problem statement correlated with the domains of the
// correctly solved questions, falling back to any active problem.
func (s *QuestService) resolveProblem(ctx context.Context, session *domain.QuestSession) (*domain.ProblemStatement, error) {
	solved, err := s.repos.Attempts.CorrectAttempts(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	domains := make([]string, 0, len(solved))
	for _, attempt := range solved {
		if q, ok := session.QuestionByID(attempt.QuestionID); ok {
			domains = append(domains, q.ProblemDomain)
		}
	}
	if len(domains) > 0 {
		problem, err := s.repos.Problems.ActiveProblemInDomains(ctx, domains)
		if err != nil {
			return nil, err
		}
		if problem != nil {
			return problem, nil
		}
	}
	return s.repos.Problems.AnyActiveProblem(ctx)
}

// Status is the read-only projection for polling clients. Timeout detection
// here is informational; it never mutates the session.
func (s *QuestService) Status(ctx context.Context, teamID string) (*domain.QuestStatus, error) {
	session, err := s.repos.Sessions.SessionByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.repos.Attempts.AttemptsBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	elapsed := int(math.Round(s.now().Sub(session.StartedAt).Seconds()))
	remaining := max(0, session.QuestDuration-elapsed)

	status := &domain.QuestStatus{
		Session:       session,
		Attempts:      attempts,
		TimeElapsed:   elapsed,
		TimeRemaining: remaining,
		IsTimeUp:      remaining <= 0,
		Progress: domain.QuestProgress{
			Current:        session.CurrentQuestionIndex + 1,
			Total:          len(session.Questions),
			CorrectAnswers: session.CorrectAnswers,
			Qualified:      session.CorrectAnswers >= domain.QualificationThreshold,
		},
	}
	if session.CurrentQuestionIndex < len(session.Questions) {
		q := session.Questions[session.CurrentQuestionIndex].Sanitize()
		status.CurrentQuestion = &q
	}
	return status, nil
}

// CurrentQuestion returns the sanitized question at the session's cursor.
func (s *QuestService) CurrentQuestion(ctx context.Context, sessionID string) (*domain.SanitizedQuestion, domain.QuestProgress, error) {
	session, err := s.repos.Sessions.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, domain.QuestProgress{}, err
	}
	if session.IsCompleted {
		return nil, domain.QuestProgress{}, domain.ErrQuestCompleted
	}
	if session.CurrentQuestionIndex >= len(session.Questions) {
		return nil, domain.QuestProgress{}, domain.ErrQuestionNotFound
	}
	q := session.Questions[session.CurrentQuestionIndex].Sanitize()
	progress := domain.QuestProgress{
		Current:        session.CurrentQuestionIndex + 1,
		Total:          len(session.Questions),
		CorrectAnswers: session.CorrectAnswers,
		Qualified:      session.CorrectAnswers >= domain.QualificationThreshold,
	}
	return &q, progress, nil
}

// Questions lists the session's snapshot with answers stripped.
func (s *QuestService) Questions(ctx context.Context, sessionID string) ([]domain.SanitizedQuestion, error) {
	session, err := s.repos.Sessions.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sanitized := make([]domain.SanitizedQuestion, 0, len(session.Questions))
	for _, q := range session.Questions {
		sanitized = append(sanitized, q.Sanitize())
	}
	return sanitized, nil
}

// Reset wipes the team's session and attempts and restores the team to stage
// one. Admin/testing escape hatch.
func (s *QuestService) Reset(ctx context.Context, teamID string) error {
	if _, err := s.repos.Teams.TeamByID(ctx, teamID); err != nil {
		return err
	}
	if err := s.repos.Attempts.DeleteAttemptsByTeam(ctx, teamID); err != nil {
		return err
	}
	if err := s.repos.Sessions.DeleteSessionByTeam(ctx, teamID); err != nil {
		return err
	}
	return s.repos.Teams.ResetProgress(ctx, teamID)
}

// Leaderboard ranks completed sessions by quest score, top ten.
func (s *QuestService) Leaderboard(ctx context.Context) ([]domain.QuestLeaderboardEntry, error) {
	if s.leaderboardCache != nil {
		if entries, ok := s.leaderboardCache.GetQuestLeaderboard(ctx); ok {
			return entries, nil
		}
	}

	sessions, err := s.repos.Sessions.CompletedSessions(ctx, 10)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.QuestLeaderboardEntry, 0, len(sessions))
	for i, session := range sessions {
		team, err := s.repos.Teams.TeamByID(ctx, session.TeamID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.QuestLeaderboardEntry{
			Rank:           i + 1,
			TeamName:       team.TeamName,
			Score:          session.Score,
			CorrectAnswers: session.CorrectAnswers,
			Accuracy:       int(math.Round(float64(session.CorrectAnswers) / domain.QuestQuestionCount * 100)),
		})
	}

	if s.leaderboardCache != nil {
		s.leaderboardCache.SetQuestLeaderboard(ctx, entries)
	}
	return entries, nil
}
