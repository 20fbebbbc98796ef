package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/quizify/quizify-server/internal/quiz"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type snoozeCall struct {
	userID int
	until  time.Time
}

type bumpCall struct {
	userID  int
	ignores int
}

type sentCall struct {
	userID     int
	questionID int
	at         time.Time
}

type fakeStore struct {
	candidates []quiz.Candidate
	pools      map[int][]quiz.Question

	listErr error
	poolErr map[int]error

	bumpApplied *bool // nil means "applied"

	bumps   []bumpCall
	snoozes []snoozeCall
	sends   []sentCall
}

func (f *fakeStore) ListCandidates(ctx context.Context) ([]quiz.Candidate, error) {
	return f.candidates, f.listErr
}

func (f *fakeStore) BumpIgnores(ctx context.Context, userID, ignores int, lastQuestionID *int) (bool, error) {
	f.bumps = append(f.bumps, bumpCall{userID, ignores})
	if f.bumpApplied != nil {
		return *f.bumpApplied, nil
	}
	return true, nil
}

func (f *fakeStore) Snooze(ctx context.Context, userID int, until time.Time) error {
	f.snoozes = append(f.snoozes, snoozeCall{userID, until})
	return nil
}

func (f *fakeStore) QuestionPool(ctx context.Context, userID int) ([]quiz.Question, error) {
	if err := f.poolErr[userID]; err != nil {
		return nil, err
	}
	return f.pools[userID], nil
}

func (f *fakeStore) MarkSent(ctx context.Context, userID, questionID int, at time.Time) error {
	f.sends = append(f.sends, sentCall{userID, questionID, at})
	return nil
}

type sendCall struct {
	token string
	title string
	body  string
	data  map[string]any
}

type fakeSender struct {
	fail  bool
	calls []sendCall
}

func (f *fakeSender) Send(ctx context.Context, token, title, body string, data map[string]any) error {
	f.calls = append(f.calls, sendCall{token, title, body, data})
	if f.fail {
		return errors.New("expo unreachable")
	}
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

var noon = time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

func newTestScheduler(st *fakeStore, sender *fakeSender, now time.Time) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(st, sender, time.Minute, logger)
	s.now = func() time.Time { return now }
	return s
}

func activeCandidate(userID int) quiz.Candidate {
	return quiz.Candidate{
		UserID:    userID,
		PushToken: "ExponentPushToken[abc]",
		Settings: quiz.Settings{
			UserID:                   userID,
			NotificationsEnabled:     true,
			QuizIntervalMinutes:      10,
			LastNotificationAnswered: true,
		},
	}
}

func question(id, shown, correct int) quiz.Question {
	return quiz.Question{
		ID: id, NoteID: 1,
		Question: "What is the powerhouse of the cell?",
		OptionA:  "Nucleus", OptionB: "Mitochondria",
		OptionC: "Ribosome", OptionD: "Golgi apparatus",
		CorrectAnswer: "Mitochondria",
		TimesShown:    shown, TimesCorrect: correct,
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestTickFirstSend(t *testing.T) {
	st := &fakeStore{
		candidates: []quiz.Candidate{activeCandidate(1)},
		pools:      map[int][]quiz.Question{1: {question(42, 0, 0)}},
	}
	sender := &fakeSender{}
	newTestScheduler(st, sender, noon).Tick(context.Background())

	if len(sender.calls) != 1 {
		t.Fatalf("got %d sends, want 1", len(sender.calls))
	}
	call := sender.calls[0]
	if call.token != "ExponentPushToken[abc]" || call.title != "Quizify" {
		t.Errorf("unexpected send %+v", call)
	}
	if call.data["questionId"] != 42 || call.data["correct_answer"] != "Mitochondria" {
		t.Errorf("payload data missing question reference: %v", call.data)
	}
	if len(st.sends) != 1 || st.sends[0] != (sentCall{1, 42, noon}) {
		t.Fatalf("MarkSent not recorded correctly: %+v", st.sends)
	}
	if len(st.bumps) != 0 || len(st.snoozes) != 0 {
		t.Error("no engagement writes expected for an answered user")
	}
}

func TestTickIntervalGating(t *testing.T) {
	fiveAgo := noon.Add(-5 * time.Minute)
	c := activeCandidate(1)
	c.Settings.LastNotificationAt = &fiveAgo

	st := &fakeStore{
		candidates: []quiz.Candidate{c},
		pools:      map[int][]quiz.Question{1: {question(1, 0, 0)}},
	}
	sender := &fakeSender{}
	newTestScheduler(st, sender, noon).Tick(context.Background())
	if len(sender.calls) != 0 {
		t.Fatal("5 minutes since last send with a 10 minute interval must not send")
	}

	tenAgo := noon.Add(-10 * time.Minute)
	c.Settings.LastNotificationAt = &tenAgo
	st.candidates = []quiz.Candidate{c}
	newTestScheduler(st, sender, noon).Tick(context.Background())
	if len(sender.calls) != 1 {
		t.Fatal("10 minutes since last send must be eligible again")
	}
}

func TestTickQuietHours(t *testing.T) {
	c := activeCandidate(1)
	c.Settings.QuietHoursStart = "22:00"
	c.Settings.QuietHoursEnd = "08:00"

	st := &fakeStore{
		candidates: []quiz.Candidate{c},
		pools:      map[int][]quiz.Question{1: {question(1, 0, 0)}},
	}
	sender := &fakeSender{}

	night := time.Date(2025, time.March, 4, 23, 30, 0, 0, time.UTC)
	newTestScheduler(st, sender, night).Tick(context.Background())
	if len(sender.calls) != 0 {
		t.Fatal("no sends during quiet hours")
	}

	morning := time.Date(2025, time.March, 4, 8, 0, 0, 0, time.UTC)
	newTestScheduler(st, sender, morning).Tick(context.Background())
	if len(sender.calls) != 1 {
		t.Fatal("quiet hours end is exclusive; 08:00 must send")
	}
}

func TestTickSnoozedUserSkipped(t *testing.T) {
	until := noon.Add(30 * time.Minute)
	c := activeCandidate(1)
	c.Settings.SnoozedUntil = &until

	st := &fakeStore{
		candidates: []quiz.Candidate{c},
		pools:      map[int][]quiz.Question{1: {question(1, 0, 0)}},
	}
	sender := &fakeSender{}
	newTestScheduler(st, sender, noon).Tick(context.Background())

	if len(sender.calls) != 0 || len(st.bumps) != 0 || len(st.snoozes) != 0 {
		t.Fatal("a snoozed user gets no processing at all this tick")
	}
}

func TestTickIgnorePenaltyStillSends(t *testing.T) {
	tenAgo := noon.Add(-10 * time.Minute)
	qid := 7
	c := activeCandidate(1)
	c.Settings.LastNotificationAt = &tenAgo
	c.Settings.LastNotificationQuestionID = &qid
	c.Settings.LastNotificationAnswered = false
	c.Settings.ConsecutiveIgnores = 0

	st := &fakeStore{
		candidates: []quiz.Candidate{c},
		pools:      map[int][]quiz.Question{1: {question(8, 0, 0)}},
	}
	sender := &fakeSender{}
	newTestScheduler(st, sender, noon).Tick(context.Background())

	if len(st.bumps) != 1 || st.bumps[0] != (bumpCall{1, 1}) {
		t.Fatalf("expected one ignore bump to 1, got %+v", st.bumps)
	}
	if len(sender.calls) != 1 {
		t.Fatal("the ignore penalty accumulates but does not block this tick's send")
	}
}

func TestTickThirdIgnoreSnoozes(t *testing.T) {
	tenAgo := noon.Add(-10 * time.Minute)
	qid := 7
	c := activeCandidate(1)
	c.Settings.LastNotificationAt = &tenAgo
	c.Settings.LastNotificationQuestionID = &qid
	c.Settings.LastNotificationAnswered = false
	c.Settings.ConsecutiveIgnores = 2

	st := &fakeStore{
		candidates: []quiz.Candidate{c},
		pools:      map[int][]quiz.Question{1: {question(8, 0, 0)}},
	}
	sender := &fakeSender{}
	newTestScheduler(st, sender, noon).Tick(context.Background())

	if len(st.snoozes) != 1 {
		t.Fatalf("expected a snooze, got %+v", st.snoozes)
	}
	if want := noon.Add(quiz.SnoozeDuration); !st.snoozes[0].until.Equal(want) {
		t.Errorf("snoozed until %v, want %v", st.snoozes[0].until, want)
	}
	if len(sender.calls) != 0 {
		t.Error("no notification on the tick that triggers the snooze")
	}
	if len(st.bumps) != 0 {
		t.Error("the snooze transition resets the counter; no bump expected")
	}
}

func TestTickRacingAnswerDropsPenalty(t *testing.T) {
	tenAgo := noon.Add(-10 * time.Minute)
	qid := 7
	c := activeCandidate(1)
	c.Settings.LastNotificationAt = &tenAgo
	c.Settings.LastNotificationQuestionID = &qid
	c.Settings.LastNotificationAnswered = false

	notApplied := false
	st := &fakeStore{
		candidates:  []quiz.Candidate{c},
		pools:       map[int][]quiz.Question{1: {question(8, 0, 0)}},
		bumpApplied: &notApplied,
	}
	sender := &fakeSender{}
	newTestScheduler(st, sender, noon).Tick(context.Background())

	// The conditional update matched no rows (answer landed first); the
	// send still proceeds.
	if len(sender.calls) != 1 {
		t.Fatal("send must proceed when the penalty write is superseded by an answer")
	}
}

func TestTickNoQuestionsIsNormal(t *testing.T) {
	st := &fakeStore{
		candidates: []quiz.Candidate{activeCandidate(1)},
		pools:      map[int][]quiz.Question{},
	}
	sender := &fakeSender{}
	newTestScheduler(st, sender, noon).Tick(context.Background())

	if len(sender.calls) != 0 || len(st.sends) != 0 {
		t.Fatal("an empty question pool means nothing to send, silently")
	}
}

func TestTickDeliveryFailureLeavesStateUntouched(t *testing.T) {
	st := &fakeStore{
		candidates: []quiz.Candidate{activeCandidate(1)},
		pools:      map[int][]quiz.Question{1: {question(1, 0, 0)}},
	}
	sender := &fakeSender{fail: true}
	newTestScheduler(st, sender, noon).Tick(context.Background())

	if len(st.sends) != 0 {
		t.Fatal("failed delivery must not mark the notification sent")
	}
}

func TestTickPerUserFailureIsolation(t *testing.T) {
	st := &fakeStore{
		candidates: []quiz.Candidate{activeCandidate(1), activeCandidate(2)},
		pools:      map[int][]quiz.Question{2: {question(9, 0, 0)}},
		poolErr:    map[int]error{1: errors.New("connection reset")},
	}
	sender := &fakeSender{}
	newTestScheduler(st, sender, noon).Tick(context.Background())

	if len(st.sends) != 1 || st.sends[0].userID != 2 {
		t.Fatalf("user 2 must still be processed after user 1 fails: %+v", st.sends)
	}
}

func TestTickCandidateQueryFailureAbandonsPass(t *testing.T) {
	st := &fakeStore{listErr: errors.New("db down")}
	sender := &fakeSender{}
	// Must not panic; the tick is simply lost.
	newTestScheduler(st, sender, noon).Tick(context.Background())
	if len(sender.calls) != 0 {
		t.Fatal("no sends after a failed candidate query")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	st := &fakeStore{}
	sender := &fakeSender{}
	s := newTestScheduler(st, sender, noon)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestConsecutiveIgnoreLifecycle(t *testing.T) {
	// User receives a notification, never answers, and every subsequent
	// tick is past the interval. By the third evaluation the user is
	// snoozed for an hour with no send.
	qid := 5
	sentAt := noon.Add(-10 * time.Minute)
	c := activeCandidate(1)
	c.Settings.LastNotificationAt = &sentAt
	c.Settings.LastNotificationQuestionID = &qid
	c.Settings.LastNotificationAnswered = false

	st := &fakeStore{pools: map[int][]quiz.Question{1: {question(5, 1, 0)}}}
	sender := &fakeSender{}

	now := noon
	for i := 0; i < 3; i++ {
		c.Settings.ConsecutiveIgnores = i
		st.candidates = []quiz.Candidate{c}
		newTestScheduler(st, sender, now).Tick(context.Background())
		last := now
		c.Settings.LastNotificationAt = &last
		now = now.Add(15 * time.Minute)
	}

	if len(st.snoozes) != 1 {
		t.Fatalf("expected exactly one snooze, got %+v", st.snoozes)
	}
	// First two evaluations sent (penalty accumulates without blocking),
	// the third snoozed instead.
	if len(sender.calls) != 2 {
		t.Errorf("got %d sends, want 2", len(sender.calls))
	}
	if got := st.bumps; len(got) != 2 || got[0].ignores != 1 || got[1].ignores != 2 {
		t.Errorf("ignore counts = %+v, want bumps to 1 then 2", got)
	}
}
