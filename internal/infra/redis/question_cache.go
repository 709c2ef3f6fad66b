package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"cipherquest-service/internal/domain"
)

const questionBankKey = "quest:questions:active"

// cachedQuestion is the Redis wire form. The domain type hides the answer
// from client-facing JSON, but the cache must round-trip it.
type cachedQuestion struct {
	ID            string `json:"id"`
	Hint          string `json:"hint"`
	Category      string `json:"category"`
	ProblemDomain string `json:"problem_domain"`
	CipherType    string `json:"cipher_type"`
	Difficulty    int    `json:"difficulty"`
	CorrectAnswer string `json:"correct_answer"`
	MaxAttempts   int    `json:"max_attempts"`
	IsActive      bool   `json:"is_active"`
}

func toWire(questions []domain.CipherQuestion) []cachedQuestion {
	wire := make([]cachedQuestion, 0, len(questions))
	for _, q := range questions {
		wire = append(wire, cachedQuestion{
			ID:            q.ID,
			Hint:          q.Hint,
			Category:      q.Category,
			ProblemDomain: q.ProblemDomain,
			CipherType:    q.CipherType,
			Difficulty:    q.Difficulty,
			CorrectAnswer: q.CorrectAnswer,
			MaxAttempts:   q.MaxAttempts,
			IsActive:      q.IsActive,
		})
	}
	return wire
}

func fromWire(wire []cachedQuestion) []domain.CipherQuestion {
	questions := make([]domain.CipherQuestion, 0, len(wire))
	for _, q := range wire {
		questions = append(questions, domain.CipherQuestion{
			ID:            q.ID,
			Hint:          q.Hint,
			Category:      q.Category,
			ProblemDomain: q.ProblemDomain,
			CipherType:    q.CipherType,
			Difficulty:    q.Difficulty,
			CorrectAnswer: q.CorrectAnswer,
			MaxAttempts:   q.MaxAttempts,
			IsActive:      q.IsActive,
		})
	}
	return questions
}

// QuestionLoader fetches the active question bank from a backing store.
type QuestionLoader interface {
	ActiveQuestions(ctx context.Context) ([]domain.CipherQuestion, error)
}

// QuestionCache caches the active question bank in Redis and falls back to a
// loader on cache miss. Singleflight collapses concurrent misses (session
// starts tend to cluster around the quest opening) into one backend load, and
// the TTL carries jitter so multiple instances do not refill in lockstep.
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ActiveQuestions(ctx context.Context) ([]domain.CipherQuestion, error) {
	if questions, ok := c.cached(ctx); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(questionBankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.cached(ctx); ok {
			return questions, nil
		}

		questions, err := c.loader.ActiveQuestions(ctx)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(toWire(questions)); err == nil {
			_ = c.client.Set(ctx, questionBankKey, raw, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.CipherQuestion), nil
}

// Invalidate drops the cached bank, forcing the next read through the loader.
func (c *QuestionCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, questionBankKey).Err()
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.CipherQuestion, bool) {
	raw, err := c.client.Get(ctx, questionBankKey).Bytes()
	if err != nil {
		return nil, false
	}
	var wire []cachedQuestion
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, false
	}
	return fromWire(wire), true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
