package app

import (
	"math/rand"

	"cipherquest-service/internal/domain"
)

// sampleQuestions draws a uniformly random n-subset of the pool without
// replacement. The pool is never returned short: fewer than n candidates is
// ErrNoQuestionsAvailable rather than a truncated session.
func sampleQuestions(rnd *rand.Rand, pool []domain.CipherQuestion, n int) ([]domain.CipherQuestion, error) {
	if len(pool) < n {
		return nil, domain.ErrNoQuestionsAvailable
	}
	picked := make([]domain.CipherQuestion, 0, n)
	for _, idx := range rnd.Perm(len(pool))[:n] {
		picked = append(picked, pool[idx])
	}
	return picked, nil
}
