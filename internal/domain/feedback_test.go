package domain

import "testing"

func TestFeedbackExactMatch(t *testing.T) {
	fb := Feedback("SECURE", "secure")
	if len(fb) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(fb))
	}
	for i, entry := range fb {
		if entry.Status != LetterCorrect {
			t.Fatalf("position %d: expected correct, got %s", i, entry.Status)
		}
	}
}

func TestFeedbackDuplicateLetters(t *testing.T) {
	// Answer "listen" has one 's'. Guessing "silent": s at position 0 is
	// present (answer has s elsewhere), i at 1 is correct, l at 2 present,
	// e at 3 present, n at 4 present, t at 5 present.
	fb := Feedback("silent", "listen")
	want := []LetterStatus{LetterPresent, LetterCorrect, LetterPresent, LetterPresent, LetterPresent, LetterPresent}
	for i, status := range want {
		if fb[i].Status != status {
			t.Fatalf("position %d: expected %s, got %s", i, status, fb[i].Status)
		}
	}
}

func TestFeedbackPoolConsumption(t *testing.T) {
	// Answer "abc" has a single 'a'. In guess "aa" the first 'a' is correct
	// and consumes the pool, so the second cannot be marked present.
	fb := Feedback("aa", "abc")
	if fb[0].Status != LetterCorrect {
		t.Fatalf("expected first letter correct, got %s", fb[0].Status)
	}
	if fb[1].Status != LetterAbsent {
		t.Fatalf("expected second letter absent after pool drained, got %s", fb[1].Status)
	}
}

func TestFeedbackGuessLongerThanAnswer(t *testing.T) {
	fb := Feedback("abcd", "ab")
	if len(fb) != 4 {
		t.Fatalf("expected feedback for each guessed letter, got %d", len(fb))
	}
	if fb[0].Status != LetterCorrect || fb[1].Status != LetterCorrect {
		t.Fatalf("expected prefix correct, got %s %s", fb[0].Status, fb[1].Status)
	}
	if fb[2].Status != LetterAbsent || fb[3].Status != LetterAbsent {
		t.Fatalf("expected overflow positions absent, got %s %s", fb[2].Status, fb[3].Status)
	}
}

func TestFeedbackOverflowConsumesPool(t *testing.T) {
	// Overflow positions cannot be correct but still draw from the letter
	// pool: guessing "cab" against "ab" leaves 'a' and 'b' unconsumed after
	// the first pass, so both land as present, the 'b' at position 2 beyond
	// the answer's length.
	fb := Feedback("cab", "ab")
	want := []LetterStatus{LetterAbsent, LetterPresent, LetterPresent}
	for i, status := range want {
		if fb[i].Status != status {
			t.Fatalf("position %d: expected %s, got %s", i, status, fb[i].Status)
		}
	}
}

func TestSessionQuestionByID(t *testing.T) {
	session := &QuestSession{
		Questions: []CipherQuestion{{ID: "q1"}, {ID: "q2"}},
	}
	if _, ok := session.QuestionByID("q2"); !ok {
		t.Fatal("expected q2 in snapshot")
	}
	if _, ok := session.QuestionByID("q9"); ok {
		t.Fatal("expected q9 missing from snapshot")
	}
}

func TestSanitizeStripsAnswer(t *testing.T) {
	q := CipherQuestion{ID: "q1", Hint: "h", CorrectAnswer: "secret", Difficulty: 2, MaxAttempts: 10}
	s := q.Sanitize()
	if s.ID != "q1" || s.Difficulty != 2 || s.MaxAttempts != 10 {
		t.Fatalf("sanitized fields lost: %+v", s)
	}
}
