package domain

import "strings"

// LetterStatus classifies a single guessed letter.
type LetterStatus string

const (
	LetterCorrect LetterStatus = "correct"
	LetterPresent LetterStatus = "present"
	LetterAbsent  LetterStatus = "absent"
)

// LetterFeedback is one positional entry of a guess evaluation.
type LetterFeedback struct {
	Letter string       `json:"letter"`
	Status LetterStatus `json:"status"`
}

// Feedback compares a guess against the correct answer with the two-pass
// duplicate-aware algorithm: exact positional matches are marked first and
// consume from the answer's letter pool, then remaining letters are marked
// present while the pool lasts. Comparison is case-folded over runes. Guess
// positions beyond the answer's length can never be correct but still take
// part in the present pass, consuming from the pool like any other position.
func Feedback(guess, correctAnswer string) []LetterFeedback {
	guessLetters := []rune(strings.ToLower(guess))
	answerLetters := []rune(strings.ToLower(correctAnswer))

	pool := make(map[rune]int, len(answerLetters))
	for _, r := range answerLetters {
		pool[r]++
	}

	feedback := make([]LetterFeedback, len(guessLetters))
	for i, r := range guessLetters {
		if i < len(answerLetters) && r == answerLetters[i] {
			feedback[i] = LetterFeedback{Letter: string(r), Status: LetterCorrect}
			pool[r]--
		} else {
			feedback[i] = LetterFeedback{Letter: string(r), Status: LetterAbsent}
		}
	}

	for i, r := range guessLetters {
		if feedback[i].Status == LetterCorrect {
			continue
		}
		if pool[r] > 0 {
			feedback[i].Status = LetterPresent
			pool[r]--
		}
	}

	return feedback
}
