package app_test

import (
	"context"
	"errors"
	"testing"

	. "cipherquest-service/internal/app"
	"cipherquest-service/internal/domain"
)

func TestDashboardBeforeQuest(t *testing.T) {
	env := newQuestEnv(t)
	env.seedTeam(t, "t1")
	svc := NewTeamService(env.repos)

	dashboard, err := svc.Dashboard(context.Background(), "t1")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.QuestStage.Completed || dashboard.SubmitStage.Completed || dashboard.FinalsStage.Completed {
		t.Fatalf("no stage should be complete yet: %+v", dashboard)
	}
	if dashboard.OverallProgress != 0 {
		t.Fatalf("expected 0%% progress, got %d", dashboard.OverallProgress)
	}
}

func TestDashboardAfterQualification(t *testing.T) {
	env := newQuestEnv(t)
	env.seedTeam(t, "t1")
	session, _, _ := env.service.Start(context.Background(), "t1")
	for _, id := range []string{"q1", "q2", "q3"} {
		if _, err := env.service.SubmitGuess(context.Background(), session.ID, id, env.answer(id), "t1"); err != nil {
			t.Fatalf("guess %s: %v", id, err)
		}
	}

	svc := NewTeamService(env.repos)
	dashboard, err := svc.Dashboard(context.Background(), "t1")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !dashboard.QuestStage.Completed || !dashboard.Qualified {
		t.Fatalf("expected completed quest stage, got %+v", dashboard)
	}
	if dashboard.AssignedProblem == nil {
		t.Fatal("expected assigned problem on the dashboard")
	}
	if dashboard.OverallProgress != 33 {
		t.Fatalf("expected 33%% at stage 2, got %d", dashboard.OverallProgress)
	}
}

func TestProgressCanProceed(t *testing.T) {
	env := newQuestEnv(t)
	env.seedTeam(t, "t1")
	svc := NewTeamService(env.repos)

	progress, err := svc.Progress(context.Background(), "t1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.CanProceed {
		t.Fatal("stage 1 team cannot proceed yet")
	}

	session, _, _ := env.service.Start(context.Background(), "t1")
	for _, id := range []string{"q1", "q2", "q3"} {
		if _, err := env.service.SubmitGuess(context.Background(), session.ID, id, env.answer(id), "t1"); err != nil {
			t.Fatalf("guess %s: %v", id, err)
		}
	}
	progress, err = svc.Progress(context.Background(), "t1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !progress.CanProceed || !progress.Qualified {
		t.Fatalf("qualified team should proceed: %+v", progress)
	}
}

func TestUpdateProfileRequiresMembers(t *testing.T) {
	env := newQuestEnv(t)
	env.seedTeam(t, "t1")
	svc := NewTeamService(env.repos)

	if _, err := svc.UpdateProfile(context.Background(), "t1", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil members, got %v", err)
	}
	team, err := svc.UpdateProfile(context.Background(), "t1", []string{"ada"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(team.TeamMembers) != 1 || team.TeamMembers[0] != "ada" {
		t.Fatalf("members not applied: %v", team.TeamMembers)
	}
}
