package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "cipherquest-service/internal/app"
	"cipherquest-service/internal/domain"
	"cipherquest-service/internal/infra/memory"
)

func newJudgingEnv(t *testing.T) (*memory.Store, *Repositories, *JudgingService) {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	svc := NewJudgingService(repos)
	svc.SetNow(func() time.Time { return time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC) })
	return store, repos, svc
}

func seedJudgedTeam(t *testing.T, repos *Repositories, id string, questScore int) {
	t.Helper()
	err := repos.Teams.CreateTeam(context.Background(), &domain.Team{
		ID:         id,
		TeamName:   "team-" + id,
		LeadEmail:  id + "@example.com",
		QuestScore: questScore,
	})
	if err != nil {
		t.Fatalf("seed team: %v", err)
	}
}

func TestRecordComputesTotal(t *testing.T) {
	_, repos, svc := newJudgingEnv(t)
	seedJudgedTeam(t, repos, "t1", 80)

	score, err := svc.Record(context.Background(), JudgeInput{
		TeamID:              "t1",
		InnovationScore:     90,
		ImplementationScore: 70,
		PresentationScore:   85,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	// round((90+70+85+80)/4) = round(81.25) = 81
	if score.TotalScore != 81 {
		t.Fatalf("expected total 81, got %d", score.TotalScore)
	}
	if score.QuestScore != 80 {
		t.Fatalf("expected quest component 80, got %d", score.QuestScore)
	}
}

func TestRecordCapsQuestScore(t *testing.T) {
	_, repos, svc := newJudgingEnv(t)
	seedJudgedTeam(t, repos, "t1", 150)

	score, err := svc.Record(context.Background(), JudgeInput{
		TeamID:              "t1",
		InnovationScore:     100,
		ImplementationScore: 100,
		PresentationScore:   100,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if score.QuestScore != 100 {
		t.Fatalf("quest component must cap at 100, got %d", score.QuestScore)
	}
	if score.TotalScore != 100 {
		t.Fatalf("expected total 100, got %d", score.TotalScore)
	}
}

func TestRecordValidatesRange(t *testing.T) {
	_, repos, svc := newJudgingEnv(t)
	seedJudgedTeam(t, repos, "t1", 50)

	_, err := svc.Record(context.Background(), JudgeInput{
		TeamID:          "t1",
		InnovationScore: 101,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for out-of-range score, got %v", err)
	}
	_, err = svc.Record(context.Background(), JudgeInput{
		TeamID:            "t1",
		PresentationScore: -1,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative score, got %v", err)
	}
}

func TestLeaderboardRanksByTotal(t *testing.T) {
	_, repos, svc := newJudgingEnv(t)
	seedJudgedTeam(t, repos, "t1", 60)
	seedJudgedTeam(t, repos, "t2", 90)

	if _, err := svc.Record(context.Background(), JudgeInput{TeamID: "t1", InnovationScore: 50, ImplementationScore: 50, PresentationScore: 50}); err != nil {
		t.Fatalf("record t1: %v", err)
	}
	if _, err := svc.Record(context.Background(), JudgeInput{TeamID: "t2", InnovationScore: 90, ImplementationScore: 90, PresentationScore: 90}); err != nil {
		t.Fatalf("record t2: %v", err)
	}

	entries, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].TeamName != "team-t2" || entries[0].Rank != 1 {
		t.Fatalf("expected t2 leading, got %+v", entries[0])
	}
}

func TestTopTeamsAwardsMedals(t *testing.T) {
	_, repos, svc := newJudgingEnv(t)
	for i, id := range []string{"t1", "t2", "t3", "t4"} {
		seedJudgedTeam(t, repos, id, 50)
		score := 60 + i*10
		if _, err := svc.Record(context.Background(), JudgeInput{TeamID: id, InnovationScore: score, ImplementationScore: score, PresentationScore: score}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	top, err := svc.TopTeams(context.Background())
	if err != nil {
		t.Fatalf("top teams: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("podium holds three, got %d", len(top))
	}
	if top[0].TeamName != "team-t4" || top[0].Medal != "gold" {
		t.Fatalf("expected t4 gold, got %+v", top[0])
	}
	if top[2].Medal != "bronze" {
		t.Fatalf("expected bronze third, got %+v", top[2])
	}
}

func TestStatsAggregatesFunnel(t *testing.T) {
	_, repos, svc := newJudgingEnv(t)
	seedJudgedTeam(t, repos, "t1", 60)
	seedJudgedTeam(t, repos, "t2", 20)

	now := time.Now().UTC()
	for _, s := range []*domain.QuestSession{
		{ID: "s1", TeamID: "t1", StartedAt: now, QuestDuration: 1800, Score: 60, CorrectAnswers: 3, IsCompleted: true},
		{ID: "s2", TeamID: "t2", StartedAt: now, QuestDuration: 1800, Score: 20, CorrectAnswers: 1, IsCompleted: true},
	} {
		if err := repos.Sessions.CreateSession(context.Background(), s); err != nil {
			t.Fatalf("seed session: %v", err)
		}
	}
	if err := repos.Submissions.UpsertSubmission(context.Background(), &domain.Submission{ID: "sub1", TeamID: "t1", ProblemID: "p", IsSubmitted: true}); err != nil {
		t.Fatalf("seed submission: %v", err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalTeams != 2 || stats.QualifiedTeams != 1 || stats.SubmittedTeams != 1 {
		t.Fatalf("unexpected funnel: %+v", stats)
	}
	if stats.AverageQuestScore != 40 {
		t.Fatalf("expected average 40, got %d", stats.AverageQuestScore)
	}
	if stats.QualificationRate != 50 {
		t.Fatalf("expected 50%% qualification, got %d", stats.QualificationRate)
	}
}
