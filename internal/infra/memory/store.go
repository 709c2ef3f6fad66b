package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"cipherquest-service/internal/app"
	"cipherquest-service/internal/domain"
)

// Store is an in-memory implementation of every storage collaborator, used in
// tests and demo mode. All reads hand out copies so callers cannot mutate
// stored state behind the store's back.
type Store struct {
	mu          sync.RWMutex
	teams       map[string]*domain.Team
	questions   map[string]*domain.CipherQuestion
	sessions    map[string]*domain.QuestSession // by session ID
	attempts    map[string]*domain.QuestionAttempt
	problems    map[string]*domain.ProblemStatement
	submissions map[string]*domain.Submission // by team ID
	scores      map[string]*domain.JudgingScore
	resetTokens map[string]*domain.PasswordResetToken
}

func NewStore() *Store {
	return &Store{
		teams:       make(map[string]*domain.Team),
		questions:   make(map[string]*domain.CipherQuestion),
		sessions:    make(map[string]*domain.QuestSession),
		attempts:    make(map[string]*domain.QuestionAttempt),
		problems:    make(map[string]*domain.ProblemStatement),
		submissions: make(map[string]*domain.Submission),
		scores:      make(map[string]*domain.JudgingScore),
		resetTokens: make(map[string]*domain.PasswordResetToken),
	}
}

// Repositories wires the store into the app layer.
func (s *Store) Repositories() *app.Repositories {
	return &app.Repositories{
		Teams:       s,
		Questions:   s,
		Sessions:    s,
		Attempts:    s,
		Problems:    s,
		Submissions: s,
		Judging:     s,
		ResetTokens: s,
	}
}

// SeedQuestions loads reference questions (demo mode, tests).
func (s *Store) SeedQuestions(questions []domain.CipherQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range questions {
		q := questions[i]
		s.questions[q.ID] = &q
	}
}

// SeedProblems loads problem statements (demo mode, tests).
func (s *Store) SeedProblems(problems []domain.ProblemStatement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range problems {
		p := problems[i]
		s.problems[p.ID] = &p
	}
}

// --- TeamRepository ---

func (s *Store) CreateTeam(_ context.Context, team *domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.teams {
		if strings.EqualFold(existing.TeamName, team.TeamName) || strings.EqualFold(existing.LeadEmail, team.LeadEmail) {
			return domain.ErrDuplicateTeam
		}
	}
	clone := *team
	s.teams[team.ID] = &clone
	return nil
}

func (s *Store) TeamByID(_ context.Context, id string) (*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	clone := *team
	return &clone, nil
}

func (s *Store) TeamByEmail(_ context.Context, email string) (*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, team := range s.teams {
		if strings.EqualFold(team.LeadEmail, email) {
			clone := *team
			return &clone, nil
		}
	}
	return nil, domain.ErrTeamNotFound
}

func (s *Store) TeamByVerificationToken(_ context.Context, token string) (*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, team := range s.teams {
		if team.VerificationToken != "" && team.VerificationToken == token {
			clone := *team
			return &clone, nil
		}
	}
	return nil, domain.ErrInvalidToken
}

func (s *Store) TeamExists(_ context.Context, name, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, team := range s.teams {
		if strings.EqualFold(team.TeamName, name) || strings.EqualFold(team.LeadEmail, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateTeam(_ context.Context, team *domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.ID]; !ok {
		return domain.ErrTeamNotFound
	}
	clone := *team
	s.teams[team.ID] = &clone
	return nil
}

func (s *Store) UpdateQuestScore(_ context.Context, id string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return domain.ErrTeamNotFound
	}
	team.QuestScore = score
	team.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SetQualification(_ context.Context, id string, qualified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return domain.ErrTeamNotFound
	}
	if qualified {
		team.CurrentStage = 2
	} else {
		team.CurrentStage = 1
	}
	team.IsDisqualified = !qualified
	team.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SetStage(_ context.Context, id string, stage int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return domain.ErrTeamNotFound
	}
	team.CurrentStage = stage
	team.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ResetProgress(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return domain.ErrTeamNotFound
	}
	team.CurrentStage = 1
	team.IsDisqualified = false
	team.QuestScore = 0
	team.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) CountTeams(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.teams), nil
}

// --- QuestionRepository ---

func (s *Store) ActiveQuestions(_ context.Context) ([]domain.CipherQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := make([]domain.CipherQuestion, 0, len(s.questions))
	for _, q := range s.questions {
		if q.IsActive {
			active = append(active, *q)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

// --- SessionRepository ---

func (s *Store) CreateSession(_ context.Context, session *domain.QuestSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := cloneSession(session)
	s.sessions[session.ID] = clone
	return nil
}

func (s *Store) SessionByID(_ context.Context, id string) (*domain.QuestSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *Store) SessionByTeam(_ context.Context, teamID string) (*domain.QuestSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.TeamID == teamID {
			return cloneSession(session), nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (s *Store) UpdateProgress(_ context.Context, session *domain.QuestSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	stored.Score = session.Score
	stored.CorrectAnswers = session.CorrectAnswers
	stored.CurrentQuestionIndex = session.CurrentQuestionIndex
	return nil
}

func (s *Store) CompleteSession(_ context.Context, id string, completedAt time.Time, problemID *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	if session.IsCompleted {
		return false, nil
	}
	session.IsCompleted = true
	session.CompletedAt = &completedAt
	session.AssignedProblemID = problemID
	return true, nil
}

func (s *Store) DeleteSessionByTeam(_ context.Context, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.TeamID == teamID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *Store) CompletedSessions(_ context.Context, limit int) ([]*domain.QuestSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	completed := make([]*domain.QuestSession, 0)
	for _, session := range s.sessions {
		if session.IsCompleted {
			completed = append(completed, cloneSession(session))
		}
	}
	sort.Slice(completed, func(i, j int) bool { return completed[i].Score > completed[j].Score })
	if limit > 0 && len(completed) > limit {
		completed = completed[:limit]
	}
	return completed, nil
}

func (s *Store) CountQualifiedSessions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, session := range s.sessions {
		if session.CorrectAnswers >= domain.QualificationThreshold {
			count++
		}
	}
	return count, nil
}

func (s *Store) AverageSessionScore(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.sessions) == 0 {
		return 0, nil
	}
	sum := 0
	for _, session := range s.sessions {
		sum += session.Score
	}
	return int(math.Round(float64(sum) / float64(len(s.sessions)))), nil
}

// --- AttemptRepository ---

func attemptKey(sessionID, questionID, teamID string) string {
	return sessionID + "|" + questionID + "|" + teamID
}

func (s *Store) AttemptFor(_ context.Context, sessionID, questionID, teamID string) (*domain.QuestionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptKey(sessionID, questionID, teamID)]
	if !ok {
		return nil, nil
	}
	return cloneAttempt(attempt), nil
}

func (s *Store) SaveAttempt(_ context.Context, attempt *domain.QuestionAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey(attempt.QuestSessionID, attempt.QuestionID, attempt.TeamID)
	if existing, ok := s.attempts[key]; ok && existing.IsCorrect && !attempt.IsCorrect {
		return domain.ErrAlreadySolved
	}
	s.attempts[key] = cloneAttempt(attempt)
	return nil
}

func (s *Store) AttemptsBySession(_ context.Context, sessionID string) ([]*domain.QuestionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempts := make([]*domain.QuestionAttempt, 0)
	for _, attempt := range s.attempts {
		if attempt.QuestSessionID == sessionID {
			attempts = append(attempts, cloneAttempt(attempt))
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].QuestionID < attempts[j].QuestionID })
	return attempts, nil
}

func (s *Store) CorrectAttempts(_ context.Context, sessionID string) ([]*domain.QuestionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempts := make([]*domain.QuestionAttempt, 0)
	for _, attempt := range s.attempts {
		if attempt.QuestSessionID == sessionID && attempt.IsCorrect {
			attempts = append(attempts, cloneAttempt(attempt))
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].QuestionID < attempts[j].QuestionID })
	return attempts, nil
}

func (s *Store) DeleteAttemptsByTeam(_ context.Context, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, attempt := range s.attempts {
		if attempt.TeamID == teamID {
			delete(s.attempts, key)
		}
	}
	return nil
}

// --- ProblemRepository ---

func (s *Store) ProblemByID(_ context.Context, id string) (*domain.ProblemStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	problem, ok := s.problems[id]
	if !ok {
		return nil, domain.ErrProblemNotFound
	}
	clone := *problem
	return &clone, nil
}

func (s *Store) ActiveProblemInDomains(_ context.Context, domains []string) (*domain.ProblemStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(domains))
	for _, d := range domains {
		wanted[d] = true
	}
	for _, problem := range s.sortedProblemsLocked() {
		if problem.IsActive && wanted[problem.Domain] {
			clone := *problem
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *Store) AnyActiveProblem(_ context.Context) (*domain.ProblemStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, problem := range s.sortedProblemsLocked() {
		if problem.IsActive {
			clone := *problem
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *Store) LatestActiveProblem(_ context.Context) (*domain.ProblemStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.ProblemStatement
	for _, problem := range s.problems {
		if !problem.IsActive {
			continue
		}
		if latest == nil || problem.CreatedAt.After(latest.CreatedAt) {
			latest = problem
		}
	}
	if latest == nil {
		return nil, domain.ErrProblemNotFound
	}
	clone := *latest
	return &clone, nil
}

func (s *Store) sortedProblemsLocked() []*domain.ProblemStatement {
	problems := make([]*domain.ProblemStatement, 0, len(s.problems))
	for _, p := range s.problems {
		problems = append(problems, p)
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].ID < problems[j].ID })
	return problems
}

// --- SubmissionRepository ---

func (s *Store) SubmissionByTeam(_ context.Context, teamID string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	submission, ok := s.submissions[teamID]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	clone := *submission
	return &clone, nil
}

func (s *Store) UpsertSubmission(_ context.Context, submission *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.submissions[submission.TeamID]; ok {
		// Keep the original row identity on conflict.
		submission.ID = existing.ID
	}
	clone := *submission
	s.submissions[submission.TeamID] = &clone
	return nil
}

func (s *Store) CountSubmitted(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, submission := range s.submissions {
		if submission.IsSubmitted {
			count++
		}
	}
	return count, nil
}

// --- JudgingRepository ---

func (s *Store) CreateScore(_ context.Context, score *domain.JudgingScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *score
	s.scores[score.ID] = &clone
	return nil
}

func (s *Store) ScoresRanked(_ context.Context, limit int) ([]*domain.JudgingScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scores := make([]*domain.JudgingScore, 0, len(s.scores))
	for _, score := range s.scores {
		clone := *score
		scores = append(scores, &clone)
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].TotalScore > scores[j].TotalScore })
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

func (s *Store) ScoreByTeam(_ context.Context, teamID string) (*domain.JudgingScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, score := range s.scores {
		if score.TeamID == teamID {
			clone := *score
			return &clone, nil
		}
	}
	return nil, nil
}

// --- ResetTokenRepository ---

func (s *Store) CreateResetToken(_ context.Context, token *domain.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *token
	s.resetTokens[token.ID] = &clone
	return nil
}

func (s *Store) ResetTokenByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, reset := range s.resetTokens {
		if reset.Token == token {
			clone := *reset
			return &clone, nil
		}
	}
	return nil, domain.ErrInvalidToken
}

// ResetTokenByTeam returns the newest token issued for a team. Test helper;
// the repository interface only resolves by token value.
func (s *Store) ResetTokenByTeam(_ context.Context, teamID string) (*domain.PasswordResetToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var newest *domain.PasswordResetToken
	for _, reset := range s.resetTokens {
		if reset.TeamID != teamID {
			continue
		}
		if newest == nil || reset.ExpiresAt.After(newest.ExpiresAt) {
			newest = reset
		}
	}
	if newest == nil {
		return nil, domain.ErrInvalidToken
	}
	clone := *newest
	return &clone, nil
}

func (s *Store) MarkResetTokenUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.resetTokens[id]
	if !ok {
		return domain.ErrInvalidToken
	}
	token.Used = true
	return nil
}

func cloneSession(session *domain.QuestSession) *domain.QuestSession {
	clone := *session
	clone.Questions = append([]domain.CipherQuestion(nil), session.Questions...)
	return &clone
}

func cloneAttempt(attempt *domain.QuestionAttempt) *domain.QuestionAttempt {
	clone := *attempt
	clone.Attempts = append([]string(nil), attempt.Attempts...)
	return &clone
}
