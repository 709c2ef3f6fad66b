package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"cipherquest-service/internal/domain"
)

// JudgingService records panel verdicts and computes the final standings.
type JudgingService struct {
	repos *Repositories
	now   func() time.Time
}

func NewJudgingService(repos *Repositories) *JudgingService {
	return &JudgingService{repos: repos, now: time.Now}
}

// JudgeInput carries one panel verdict. Component scores are 0-100.
type JudgeInput struct {
	TeamID              string
	SubmissionID        string
	InnovationScore     int
	ImplementationScore int
	PresentationScore   int
	JudgeNotes          string
	JudgedBy            string
}

// Record validates and stores a verdict. The quest score joins the average
// capped at 100 so a strong cipher run cannot dominate the judged components.
func (s *JudgingService) Record(ctx context.Context, in JudgeInput) (*domain.JudgingScore, error) {
	if in.TeamID == "" {
		return nil, fmt.Errorf("%w: team id is required", domain.ErrInvalidInput)
	}
	for _, score := range []int{in.InnovationScore, in.ImplementationScore, in.PresentationScore} {
		if score < 0 || score > 100 {
			return nil, fmt.Errorf("%w: scores must be between 0 and 100", domain.ErrInvalidInput)
		}
	}

	team, err := s.repos.Teams.TeamByID(ctx, in.TeamID)
	if err != nil {
		return nil, err
	}
	questScore := min(team.QuestScore, 100)
	total := int(math.Round(float64(in.InnovationScore+in.ImplementationScore+in.PresentationScore+questScore) / 4))

	score := &domain.JudgingScore{
		ID:                  uuid.NewString(),
		TeamID:              in.TeamID,
		SubmissionID:        in.SubmissionID,
		InnovationScore:     in.InnovationScore,
		ImplementationScore: in.ImplementationScore,
		PresentationScore:   in.PresentationScore,
		QuestScore:          questScore,
		TotalScore:          total,
		JudgeNotes:          in.JudgeNotes,
		JudgedBy:            in.JudgedBy,
		CreatedAt:           s.now().UTC(),
	}
	if err := s.repos.Judging.CreateScore(ctx, score); err != nil {
		return nil, err
	}
	return score, nil
}

// Leaderboard returns the judged standings, total score descending.
func (s *JudgingService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	scores, err := s.repos.Judging.ScoresRanked(ctx, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	for i, score := range scores {
		entry := domain.LeaderboardEntry{
			Rank:                i + 1,
			InnovationScore:     score.InnovationScore,
			ImplementationScore: score.ImplementationScore,
			PresentationScore:   score.PresentationScore,
			TotalScore:          score.TotalScore,
			JudgeNotes:          score.JudgeNotes,
		}
		team, err := s.repos.Teams.TeamByID(ctx, score.TeamID)
		if err != nil {
			return nil, err
		}
		entry.TeamName = team.TeamName
		entry.QuestScore = team.QuestScore
		if submission, err := s.repos.Submissions.SubmissionByTeam(ctx, score.TeamID); err == nil {
			entry.QuestTime = submission.QuestCompletionTime
			entry.Description = submission.Description
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// TopTeams returns the podium with medals.
func (s *JudgingService) TopTeams(ctx context.Context) ([]domain.TopTeamEntry, error) {
	scores, err := s.repos.Judging.ScoresRanked(ctx, 3)
	if err != nil {
		return nil, err
	}
	medals := []string{"gold", "silver", "bronze"}
	top := make([]domain.TopTeamEntry, 0, len(scores))
	for i, score := range scores {
		team, err := s.repos.Teams.TeamByID(ctx, score.TeamID)
		if err != nil {
			return nil, err
		}
		entry := domain.TopTeamEntry{
			Position:   i + 1,
			TeamName:   team.TeamName,
			TotalScore: score.TotalScore,
			QuestScore: team.QuestScore,
			Medal:      medals[i],
		}
		if submission, err := s.repos.Submissions.SubmissionByTeam(ctx, score.TeamID); err == nil {
			entry.QuestTime = submission.QuestCompletionTime
		}
		top = append(top, entry)
	}
	return top, nil
}

// Stats aggregates the event funnel.
func (s *JudgingService) Stats(ctx context.Context) (*domain.EventStats, error) {
	totalTeams, err := s.repos.Teams.CountTeams(ctx)
	if err != nil {
		return nil, err
	}
	qualified, err := s.repos.Sessions.CountQualifiedSessions(ctx)
	if err != nil {
		return nil, err
	}
	submitted, err := s.repos.Submissions.CountSubmitted(ctx)
	if err != nil {
		return nil, err
	}
	average, err := s.repos.Sessions.AverageSessionScore(ctx)
	if err != nil {
		return nil, err
	}

	rate := 0
	if totalTeams > 0 {
		rate = int(math.Round(float64(qualified) / float64(totalTeams) * 100))
	}
	return &domain.EventStats{
		TotalTeams:        totalTeams,
		QualifiedTeams:    qualified,
		SubmittedTeams:    submitted,
		AverageQuestScore: average,
		QualificationRate: rate,
	}, nil
}
