package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"cipherquest-service/internal/domain"
)

const questLeaderboardKey = "quest:leaderboard"

// LeaderboardCache is a short-TTL read cache for the quest leaderboard. The
// board is the most-polled endpoint during the event, and slightly stale
// rankings are acceptable. All Redis failures degrade to a cache miss.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func (c *LeaderboardCache) GetQuestLeaderboard(ctx context.Context) ([]domain.QuestLeaderboardEntry, bool) {
	raw, err := c.client.Get(ctx, questLeaderboardKey).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []domain.QuestLeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) SetQuestLeaderboard(ctx context.Context, entries []domain.QuestLeaderboardEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, questLeaderboardKey, raw, c.ttl).Err()
}

// InvalidateQuestLeaderboard drops the cached board, used after a session
// completes so the next poll reflects the new ranking.
func (c *LeaderboardCache) InvalidateQuestLeaderboard(ctx context.Context) error {
	return c.client.Del(ctx, questLeaderboardKey).Err()
}
