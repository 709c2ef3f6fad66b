package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"cipherquest-service/internal/domain"
)

func TestLeaderboardCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewLeaderboardCache(newClient(mr), time.Minute)
	ctx := context.Background()

	if _, ok := cache.GetQuestLeaderboard(ctx); ok {
		t.Fatal("expected miss on empty cache")
	}

	entries := []domain.QuestLeaderboardEntry{
		{Rank: 1, TeamName: "alpha", Score: 60, CorrectAnswers: 3, Accuracy: 60},
		{Rank: 2, TeamName: "beta", Score: 40, CorrectAnswers: 2, Accuracy: 40},
	}
	cache.SetQuestLeaderboard(ctx, entries)

	got, ok := cache.GetQuestLeaderboard(ctx)
	if !ok {
		t.Fatal("expected hit after set")
	}
	if len(got) != 2 || got[0].TeamName != "alpha" || got[1].Score != 40 {
		t.Fatalf("round trip mangled entries: %+v", got)
	}
}

func TestLeaderboardCacheExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewLeaderboardCache(newClient(mr), 30*time.Second)
	ctx := context.Background()
	cache.SetQuestLeaderboard(ctx, []domain.QuestLeaderboardEntry{{Rank: 1, TeamName: "alpha"}})

	mr.FastForward(time.Minute)
	if _, ok := cache.GetQuestLeaderboard(ctx); ok {
		t.Fatal("expected entry expired after TTL")
	}
}

func TestLeaderboardCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewLeaderboardCache(newClient(mr), time.Minute)
	ctx := context.Background()
	cache.SetQuestLeaderboard(ctx, []domain.QuestLeaderboardEntry{{Rank: 1, TeamName: "alpha"}})

	if err := cache.InvalidateQuestLeaderboard(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok := cache.GetQuestLeaderboard(ctx); ok {
		t.Fatal("expected miss after invalidation")
	}
}
