package quiz

import (
	"testing"
	"time"
)

func TestSelectQuestionEmptyPool(t *testing.T) {
	if _, ok := SelectQuestion(nil); ok {
		t.Fatal("expected no selection from empty pool")
	}
	if _, ok := SelectQuestion([]Question{}); ok {
		t.Fatal("expected no selection from empty slice")
	}
}

func TestSelectQuestionSingle(t *testing.T) {
	q, ok := SelectQuestion([]Question{{ID: 7}})
	if !ok || q.ID != 7 {
		t.Fatalf("got (%v, %v), want question 7", q.ID, ok)
	}
}

func TestSelectQuestionPrefersNeverShown(t *testing.T) {
	pool := []Question{
		{ID: 1, TimesShown: 0},
		{ID: 2, TimesShown: 0},
		{ID: 3, TimesShown: 5, TimesCorrect: 1},
	}

	seen := map[int]int{}
	for i := 0; i < 500; i++ {
		q, ok := SelectQuestion(pool)
		if !ok {
			t.Fatal("expected a selection")
		}
		if q.TimesShown != 0 {
			t.Fatalf("picked question %d with times_shown=%d; never-shown questions must win", q.ID, q.TimesShown)
		}
		seen[q.ID]++
	}

	// Random tie-break should reach every member of the tied subset.
	if seen[1] == 0 || seen[2] == 0 {
		t.Errorf("tie-break never picked one of the tied questions: %v", seen)
	}
}

func TestSelectQuestionPrefersWorstAccuracy(t *testing.T) {
	pool := []Question{
		{ID: 1, TimesShown: 4, TimesCorrect: 3}, // 0.75
		{ID: 2, TimesShown: 4, TimesCorrect: 1}, // 0.25
		{ID: 3, TimesShown: 4, TimesCorrect: 4}, // 1.00
	}

	for i := 0; i < 50; i++ {
		q, _ := SelectQuestion(pool)
		if q.ID != 2 {
			t.Fatalf("picked question %d, want lowest-accuracy question 2", q.ID)
		}
	}
}

func TestSelectQuestionDoesNotMutatePool(t *testing.T) {
	pool := []Question{
		{ID: 1, TimesShown: 2},
		{ID: 2, TimesShown: 1},
		{ID: 3, TimesShown: 0},
	}
	SelectQuestion(pool)
	for i, want := range []int{1, 2, 3} {
		if pool[i].ID != want {
			t.Fatalf("pool order changed: %v", pool)
		}
	}
}

func TestNormalizeInterval(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultIntervalMinutes},
		{-1, DefaultIntervalMinutes},
		{3, MinIntervalMinutes},
		{5, 5},
		{7, 7},
		{45, 45},
	}
	for _, tt := range tests {
		if got := NormalizeInterval(tt.in); got != tt.want {
			t.Errorf("NormalizeInterval(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSettingsIntervalElapsed(t *testing.T) {
	now := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	fresh := Settings{QuizIntervalMinutes: 10}
	if !fresh.IntervalElapsed(now) {
		t.Error("never-notified user should always be past the interval")
	}

	fiveAgo := now.Add(-5 * time.Minute)
	s := Settings{QuizIntervalMinutes: 10, LastNotificationAt: &fiveAgo}
	if s.IntervalElapsed(now) {
		t.Error("5 minutes ago with a 10 minute interval is not elapsed")
	}

	tenAgo := now.Add(-10 * time.Minute)
	s.LastNotificationAt = &tenAgo
	if !s.IntervalElapsed(now) {
		t.Error("exactly 10 minutes ago with a 10 minute interval is elapsed")
	}
}

func TestSettingsSnoozed(t *testing.T) {
	now := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	s := Settings{}
	if s.Snoozed(now) {
		t.Error("nil snoozed_until means not snoozed")
	}

	past := now.Add(-time.Minute)
	s.SnoozedUntil = &past
	if s.Snoozed(now) {
		t.Error("past snoozed_until means not snoozed")
	}

	future := now.Add(time.Minute)
	s.SnoozedUntil = &future
	if !s.Snoozed(now) {
		t.Error("future snoozed_until means snoozed")
	}
}

func TestQuestionAccuracy(t *testing.T) {
	q := Question{TimesShown: 0, TimesCorrect: 0}
	if q.Accuracy() != 0 {
		t.Error("never-shown question must score zero accuracy")
	}
	q = Question{TimesShown: 4, TimesCorrect: 3}
	if q.Accuracy() != 0.75 {
		t.Errorf("Accuracy = %v, want 0.75", q.Accuracy())
	}
}
