package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "cipherquest-service/internal/app"
	"cipherquest-service/internal/domain"
	"cipherquest-service/internal/infra/memory"
	"cipherquest-service/internal/notify"
)

// qualifiedEnv runs a team through a qualifying quest so the submission flow
// has real upstream state to work with.
func qualifiedEnv(t *testing.T) (*questEnv, *SubmissionService) {
	t.Helper()
	env := newQuestEnv(t)
	env.seedTeam(t, "t1")
	session, _, err := env.service.Start(context.Background(), "t1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	env.now = env.now.Add(10 * time.Minute)
	for _, id := range []string{"q1", "q2", "q3"} {
		if _, err := env.service.SubmitGuess(context.Background(), session.ID, id, env.answer(id), "t1"); err != nil {
			t.Fatalf("guess %s: %v", id, err)
		}
	}

	svc := NewSubmissionService(env.repos, env.notifier)
	svc.SetNow(func() time.Time { return env.now })
	return env, svc
}

func TestProblemReturnsAssignment(t *testing.T) {
	_, svc := qualifiedEnv(t)

	view, err := svc.Problem(context.Background(), "t1")
	if err != nil {
		t.Fatalf("problem: %v", err)
	}
	if view.Problem == nil || view.Problem.ID != "ps-fintech" {
		t.Fatalf("expected assigned fintech problem, got %+v", view.Problem)
	}
}

func TestProblemWithoutQualification(t *testing.T) {
	env := newQuestEnv(t)
	env.seedTeam(t, "t1")
	svc := NewSubmissionService(env.repos, env.notifier)

	if _, err := svc.Problem(context.Background(), "t1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound without a quest, got %v", err)
	}
}

func TestSubmitRecordsProjectAndAdvancesStage(t *testing.T) {
	env, svc := qualifiedEnv(t)

	submission, err := svc.Submit(context.Background(), SubmitInput{
		TeamID:       "t1",
		PptURL:       "https://example.com/deck",
		PrototypeURL: "https://example.com/proto",
		GithubURL:    "https://example.com/repo",
		Description:  "a thing",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !submission.IsSubmitted || submission.SubmissionTime == nil {
		t.Fatalf("submission not finalized: %+v", submission)
	}
	// Stamped at completion: 10 minutes into the quest.
	if submission.QuestCompletionTime != 600 {
		t.Fatalf("expected quest completion time 600s, got %d", submission.QuestCompletionTime)
	}

	team, _ := env.repos.Teams.TeamByID(context.Background(), "t1")
	if team.CurrentStage != 3 {
		t.Fatalf("expected stage 3 after submission, got %d", team.CurrentStage)
	}
	if !env.notifier.sent(notify.KindSubmissionConfirmation) {
		t.Fatal("expected submission confirmation")
	}
}

func TestSubmitIsIdempotentPerTeam(t *testing.T) {
	env, svc := qualifiedEnv(t)

	first, err := svc.Submit(context.Background(), SubmitInput{TeamID: "t1", Description: "v1"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := svc.Submit(context.Background(), SubmitInput{TeamID: "t1", Description: "v2"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("resubmission must update the same row, got %s then %s", first.ID, second.ID)
	}
	stored, _ := env.repos.Submissions.SubmissionByTeam(context.Background(), "t1")
	if stored.Description != "v2" {
		t.Fatalf("expected updated description, got %q", stored.Description)
	}
	if stored.QuestCompletionTime != first.QuestCompletionTime {
		t.Fatal("quest completion time must not change on resubmission")
	}
}

func TestSubmitRequiresQualification(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	svc := NewSubmissionService(repos, &recordingNotifier{})

	if _, err := svc.Submit(context.Background(), SubmitInput{TeamID: "ghost"}); !errors.Is(err, domain.ErrNotQualified) {
		t.Fatalf("expected ErrNotQualified, got %v", err)
	}
}

func TestSubmissionStatus(t *testing.T) {
	_, svc := qualifiedEnv(t)

	// The qualification stub exists but is not a submission yet.
	submission, submitted, err := svc.Status(context.Background(), "t1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if submitted {
		t.Fatal("stub must not read as submitted")
	}
	if submission == nil {
		t.Fatal("expected the stub row")
	}

	if _, err := svc.Submit(context.Background(), SubmitInput{TeamID: "t1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, submitted, err = svc.Status(context.Background(), "t1")
	if err != nil || !submitted {
		t.Fatalf("expected submitted=true, got %v err=%v", submitted, err)
	}
}
