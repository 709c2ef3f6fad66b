package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cipherquest-service/internal/domain"
)

func TestCompleteSessionIsAtMostOnce(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	session := &domain.QuestSession{ID: "s1", TeamID: "t1", StartedAt: time.Now().UTC(), QuestDuration: 1800}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := store.CompleteSession(ctx, "s1", time.Now().UTC(), nil)
			if err != nil {
				t.Errorf("complete: %v", err)
				return
			}
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestSessionReadsReturnCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	session := &domain.QuestSession{
		ID:     "s1",
		TeamID: "t1",
		Questions: []domain.CipherQuestion{
			{ID: "q1", CorrectAnswer: "a"},
		},
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}

	read, err := store.SessionByID(ctx, "s1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	read.Score = 999
	read.Questions[0].CorrectAnswer = "tampered"

	again, _ := store.SessionByID(ctx, "s1")
	if again.Score != 0 || again.Questions[0].CorrectAnswer != "a" {
		t.Fatalf("stored session mutated through a read copy: %+v", again)
	}
}

func TestAttemptAbsenceIsNilNil(t *testing.T) {
	store := NewStore()
	attempt, err := store.AttemptFor(context.Background(), "s1", "q1", "t1")
	if err != nil || attempt != nil {
		t.Fatalf("expected (nil, nil) for missing attempt, got %v %v", attempt, err)
	}
}

func TestTeamUniquenessIsCaseInsensitive(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.CreateTeam(ctx, &domain.Team{ID: "t1", TeamName: "Ciphers", LeadEmail: "Lead@Example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := store.CreateTeam(ctx, &domain.Team{ID: "t2", TeamName: "ciphers", LeadEmail: "other@example.com"})
	if !errors.Is(err, domain.ErrDuplicateTeam) {
		t.Fatalf("expected duplicate name rejected, got %v", err)
	}
	if _, err := store.TeamByEmail(ctx, "lead@example.com"); err != nil {
		t.Fatalf("case-insensitive email lookup failed: %v", err)
	}
}

func TestProblemLookupsReturnNilNilWhenAbsent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	store.SeedProblems([]domain.ProblemStatement{
		{ID: "p1", Domain: "fintech", IsActive: false},
	})

	problem, err := store.ActiveProblemInDomains(ctx, []string{"fintech"})
	if err != nil || problem != nil {
		t.Fatalf("inactive problem must not match, got %v %v", problem, err)
	}
	problem, err = store.AnyActiveProblem(ctx)
	if err != nil || problem != nil {
		t.Fatalf("expected (nil, nil) with no active problems, got %v %v", problem, err)
	}
	if _, err := store.LatestActiveProblem(ctx); !errors.Is(err, domain.ErrProblemNotFound) {
		t.Fatalf("expected ErrProblemNotFound, got %v", err)
	}
}

func TestUpsertSubmissionKeepsRowIdentity(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	first := &domain.Submission{ID: "sub1", TeamID: "t1", ProblemID: "p1", QuestCompletionTime: 300}
	if err := store.UpsertSubmission(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	second := &domain.Submission{ID: "sub2", TeamID: "t1", ProblemID: "p1", QuestCompletionTime: 300, IsSubmitted: true}
	if err := store.UpsertSubmission(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	stored, err := store.SubmissionByTeam(ctx, "t1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if stored.ID != "sub1" {
		t.Fatalf("conflict must keep the original row id, got %s", stored.ID)
	}
	if !stored.IsSubmitted {
		t.Fatal("upsert must apply the new fields")
	}
}

func TestCompletedSessionsOrderAndLimit(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	for _, s := range []*domain.QuestSession{
		{ID: "s1", TeamID: "t1", Score: 30, IsCompleted: true},
		{ID: "s2", TeamID: "t2", Score: 90, IsCompleted: true},
		{ID: "s3", TeamID: "t3", Score: 60, IsCompleted: true},
		{ID: "s4", TeamID: "t4", Score: 99, IsCompleted: false},
	} {
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	sessions, err := store.CompletedSessions(ctx, 2)
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected limit 2, got %d", len(sessions))
	}
	if sessions[0].ID != "s2" || sessions[1].ID != "s3" {
		t.Fatalf("wrong order: %s, %s", sessions[0].ID, sessions[1].ID)
	}
}
