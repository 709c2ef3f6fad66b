package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"cipherquest-service/internal/domain"
	"cipherquest-service/internal/notify"
)

// SubmissionService runs the post-qualification flow: problem statement
// access and project submission.
type SubmissionService struct {
	repos    *Repositories
	notifier notify.Notifier
	now      func() time.Time
}

func NewSubmissionService(repos *Repositories, notifier notify.Notifier) *SubmissionService {
	return &SubmissionService{repos: repos, notifier: notifier, now: time.Now}
}

// Problem returns the team's assigned problem statement with its deadline
// countdown. Teams without an assignment have not passed the gate yet.
func (s *SubmissionService) Problem(ctx context.Context, teamID string) (*domain.ProblemView, error) {
	session, err := s.repos.Sessions.SessionByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if session.AssignedProblemID == nil {
		return nil, domain.ErrProblemNotFound
	}
	problem, err := s.repos.Problems.ProblemByID(ctx, *session.AssignedProblemID)
	if err != nil {
		return nil, err
	}

	remaining := int(problem.SubmissionDeadline.Sub(s.now()).Seconds())
	return &domain.ProblemView{
		Problem:       problem,
		Deadline:      problem.SubmissionDeadline,
		TimeRemaining: max(0, remaining),
		IsOverdue:     remaining < 0,
	}, nil
}

// SubmitInput carries the project submission form.
type SubmitInput struct {
	TeamID       string
	PptURL       string
	PrototypeURL string
	GithubURL    string
	Description  string
}

// Submit upserts the team's project submission and advances the team to the
// final stage. Requires a completed, qualified quest with an assigned problem.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (*domain.Submission, error) {
	if in.TeamID == "" {
		return nil, fmt.Errorf("%w: team id is required", domain.ErrInvalidInput)
	}

	session, err := s.repos.Sessions.SessionByTeam(ctx, in.TeamID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrNotQualified
		}
		return nil, err
	}
	if session.AssignedProblemID == nil {
		return nil, domain.ErrNotQualified
	}

	submission, err := s.repos.Submissions.SubmissionByTeam(ctx, in.TeamID)
	if err != nil {
		if !errors.Is(err, domain.ErrSubmissionNotFound) {
			return nil, err
		}
		submission = &domain.Submission{
			ID:                  uuid.NewString(),
			TeamID:              in.TeamID,
			ProblemID:           *session.AssignedProblemID,
			QuestCompletionTime: questCompletionSeconds(session),
		}
	}

	now := s.now().UTC()
	submission.PptURL = in.PptURL
	submission.PrototypeURL = in.PrototypeURL
	submission.GithubURL = in.GithubURL
	submission.Description = in.Description
	submission.IsSubmitted = true
	submission.SubmissionTime = &now

	if err := s.repos.Submissions.UpsertSubmission(ctx, submission); err != nil {
		return nil, err
	}
	if err := s.repos.Teams.SetStage(ctx, in.TeamID, 3); err != nil {
		return nil, err
	}

	if team, err := s.repos.Teams.TeamByID(ctx, in.TeamID); err == nil {
		if !s.notifier.Notify(ctx, notify.KindSubmissionConfirmation, team.LeadEmail, notify.Payload{
			"team_name": team.TeamName,
		}) {
			log.Printf("submission confirmation for team %s not delivered", in.TeamID)
		}
	}
	return submission, nil
}

// Status reports whether and what the team has submitted.
func (s *SubmissionService) Status(ctx context.Context, teamID string) (*domain.Submission, bool, error) {
	submission, err := s.repos.Submissions.SubmissionByTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrSubmissionNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return submission, submission.IsSubmitted, nil
}

// Deadline returns the submission deadline of the latest active problem.
func (s *SubmissionService) Deadline(ctx context.Context) (*domain.ProblemView, error) {
	problem, err := s.repos.Problems.LatestActiveProblem(ctx)
	if err != nil {
		return nil, err
	}
	remaining := int(problem.SubmissionDeadline.Sub(s.now()).Seconds())
	return &domain.ProblemView{
		Problem:       problem,
		Deadline:      problem.SubmissionDeadline,
		TimeRemaining: max(0, remaining),
		IsOverdue:     remaining < 0,
	}, nil
}

// Guidelines returns the submission guidelines of the latest active problem.
func (s *SubmissionService) Guidelines(ctx context.Context) (title, guidelines string, err error) {
	problem, err := s.repos.Problems.LatestActiveProblem(ctx)
	if err != nil {
		return "", "", err
	}
	guidelines = problem.Guidelines
	if guidelines == "" {
		guidelines = "Submit your deck and prototype link as per the problem requirements."
	}
	return problem.Title, guidelines, nil
}

// questCompletionSeconds derives the quest duration a completed session took.
func questCompletionSeconds(session *domain.QuestSession) int {
	if session.CompletedAt == nil {
		return 0
	}
	return int(math.Round(session.CompletedAt.Sub(session.StartedAt).Seconds()))
}
