package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cipherquest-service/internal/domain"
)

// TeamService serves team-facing read models and profile updates.
type TeamService struct {
	repos *Repositories
	now   func() time.Time
}

func NewTeamService(repos *Repositories) *TeamService {
	return &TeamService{repos: repos, now: time.Now}
}

// Dashboard assembles the three-stage overview for a team.
func (s *TeamService) Dashboard(ctx context.Context, teamID string) (*domain.Dashboard, error) {
	team, err := s.repos.Teams.TeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	dashboard := &domain.Dashboard{
		Team:        team,
		QuestStage:  domain.StageStatus{Name: "Cipher Quest"},
		SubmitStage: domain.StageStatus{Name: "Build & Submit"},
		FinalsStage: domain.StageStatus{Name: "Finals & Leaderboard"},
	}

	session, err := s.repos.Sessions.SessionByTeam(ctx, teamID)
	switch {
	case err == nil:
		dashboard.QuestStage.Completed = session.IsCompleted
		dashboard.QuestScore = session.Score
		dashboard.CorrectAnswers = session.CorrectAnswers
		dashboard.Qualified = session.CorrectAnswers >= domain.QualificationThreshold
		if session.AssignedProblemID != nil {
			if problem, err := s.repos.Problems.ProblemByID(ctx, *session.AssignedProblemID); err == nil {
				dashboard.AssignedProblem = problem
			}
		}
	case !errors.Is(err, domain.ErrSessionNotFound):
		return nil, err
	}

	submission, err := s.repos.Submissions.SubmissionByTeam(ctx, teamID)
	switch {
	case err == nil:
		dashboard.Submission = submission
		dashboard.SubmitStage.Completed = submission.IsSubmitted
	case !errors.Is(err, domain.ErrSubmissionNotFound):
		return nil, err
	}

	score, err := s.repos.Judging.ScoreByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if score != nil {
		dashboard.JudgingScore = score
		dashboard.FinalsStage.Completed = true
	}

	dashboard.OverallProgress = overallProgress(team.CurrentStage, dashboard.SubmitStage.Completed, dashboard.FinalsStage.Completed)
	return dashboard, nil
}

// Progress is the compact polled view of a team's standing.
func (s *TeamService) Progress(ctx context.Context, teamID string) (*domain.TeamProgress, error) {
	team, err := s.repos.Teams.TeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	progress := &domain.TeamProgress{
		CurrentStage:   team.CurrentStage,
		IsDisqualified: team.IsDisqualified,
		QuestScore:     team.QuestScore,
		CanProceed:     !team.IsDisqualified && team.CurrentStage > 1,
	}

	session, err := s.repos.Sessions.SessionByTeam(ctx, teamID)
	switch {
	case err == nil:
		progress.QuestCompleted = session.IsCompleted
		progress.CorrectAnswers = session.CorrectAnswers
		progress.Qualified = session.CorrectAnswers >= domain.QualificationThreshold
	case !errors.Is(err, domain.ErrSessionNotFound):
		return nil, err
	}

	submission, err := s.repos.Submissions.SubmissionByTeam(ctx, teamID)
	switch {
	case err == nil:
		progress.SubmissionMade = submission.IsSubmitted
	case !errors.Is(err, domain.ErrSubmissionNotFound):
		return nil, err
	}
	return progress, nil
}

// UpdateProfile replaces the team member roster.
func (s *TeamService) UpdateProfile(ctx context.Context, teamID string, members []string) (*domain.Team, error) {
	if members == nil {
		return nil, fmt.Errorf("%w: team members are required", domain.ErrInvalidInput)
	}
	team, err := s.repos.Teams.TeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	team.TeamMembers = members
	team.UpdatedAt = s.now().UTC()
	if err := s.repos.Teams.UpdateTeam(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func overallProgress(stage int, submitted, judged bool) int {
	switch {
	case judged:
		return 100
	case submitted:
		return 66
	case stage >= 2:
		return 33
	default:
		return 0
	}
}
