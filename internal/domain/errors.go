package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTeamNotFound is returned when a team ID or email does not resolve.
	ErrTeamNotFound = errors.New("team not found")
	// ErrSessionNotFound is returned when a quest session does not exist for the team.
	ErrSessionNotFound = errors.New("quest session not found")
	// ErrQuestionNotFound indicates a submitted question ID is not part of the session.
	ErrQuestionNotFound = errors.New("cipher question not found")
	// ErrProblemNotFound indicates no problem statement has been assigned yet.
	ErrProblemNotFound = errors.New("problem statement not found")
	// ErrSubmissionNotFound indicates the team has not created a submission.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrTeamDisqualified blocks disqualified teams from quest operations.
	ErrTeamDisqualified = errors.New("team has been disqualified")
	// ErrQuestCompleted rejects writes against a completed session.
	ErrQuestCompleted = errors.New("quest already completed")
	// ErrAlreadySolved rejects further guesses once a question is solved.
	ErrAlreadySolved = errors.New("cipher already solved")
	// ErrMaxAttemptsReached rejects guesses after the per-question attempt cap.
	ErrMaxAttemptsReached = errors.New("maximum attempts reached for this cipher")
	// ErrNoQuestionsAvailable means the active pool cannot seed a full session.
	ErrNoQuestionsAvailable = errors.New("no cipher questions available")
	// ErrDuplicateTeam means the team name or lead email is already registered.
	ErrDuplicateTeam = errors.New("team name or email already registered")
	// ErrInvalidInput covers missing required fields and out-of-range values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials covers bad email/password combinations.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified blocks login before email verification.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidToken covers unknown, expired or spent verification/reset tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrNotQualified blocks submission flow for teams that did not pass the gate.
	ErrNotQualified = errors.New("team not qualified for submission")
)

// TimeExceededError is terminal: the guess that observed the expired clock has
// already force-completed the session, so the error carries that outcome.
type TimeExceededError struct {
	ElapsedSeconds int
	Qualified      bool
}

func (e *TimeExceededError) Error() string {
	return fmt.Sprintf("quest time limit exceeded after %ds", e.ElapsedSeconds)
}
