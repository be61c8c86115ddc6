package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"quantprep/internal/domain/session"
	"quantprep/internal/domain/user"
	"quantprep/internal/infrastructure/persistence/memory"
	"quantprep/internal/pkg/logger"

	"github.com/google/uuid"
)

type fixture struct {
	store *memory.Store
	svc   *Service
	user  user.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	u, err := store.Users().Create(context.Background(), user.User{Email: "candidate@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	svc := NewService(store.Users(), store.Sessions(), Config{QuestionCount: 5, FreeMonthlySessionLimit: 3}, logger.NewNop())
	return fixture{store: store, svc: svc, user: u}
}

func (f fixture) create(t *testing.T) session.Session {
	t.Helper()
	s, err := f.svc.Create(context.Background(), CreateInput{UserID: f.user.ID, Role: "trader", RoundType: "technical", Difficulty: "medium"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func TestCreate_FreeTierQuota(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		f.create(t)
	}
	// two used: the third is allowed
	third := f.create(t)
	if third.Status() != session.StatusInProgress {
		t.Fatalf("expected in-progress session, got %s", third.Status())
	}

	_, err := f.svc.Create(context.Background(), CreateInput{UserID: f.user.ID, Role: "trader", RoundType: "technical", Difficulty: "medium"})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	var qe *QuotaError
	if !errors.As(err, &qe) || qe.Limit != 3 || qe.Used != 3 {
		t.Fatalf("expected quota details {3 3}, got %+v", qe)
	}

	list, _ := f.svc.List(context.Background(), f.user.ID)
	if len(list) != 3 {
		t.Fatalf("expected no session created on rejection, got %d", len(list))
	}
}

func TestCreate_PreviousMonthDoesNotCount(t *testing.T) {
	f := newFixture(t)
	f.svc.now = func() time.Time { return time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC) }
	for i := 0; i < 3; i++ {
		f.create(t)
	}

	f.svc.now = func() time.Time { return time.Date(2026, 2, 1, 0, 30, 0, 0, time.UTC) }
	f.create(t)
}

func TestCreate_ActiveSubscriberIsUnlimited(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.Users().UpdateSubscriptionByEmail(context.Background(), f.user.Email, user.SubscriptionUpdate{Status: user.StatusActive}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	for i := 0; i < 5; i++ {
		f.create(t)
	}
}

func TestCreate_InactiveSubscriberIsLimited(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.Users().UpdateSubscriptionByEmail(context.Background(), f.user.Email, user.SubscriptionUpdate{Status: user.StatusInactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	for i := 0; i < 3; i++ {
		f.create(t)
	}
	if _, err := f.svc.Create(context.Background(), CreateInput{UserID: f.user.ID, Role: "analyst", RoundType: "mixed", Difficulty: "easy"}); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestCreate_ValidatesEnumerations(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{UserID: f.user.ID, Role: "trader", RoundType: "panel", Difficulty: "easy"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestComplete_ScoreIsRoundedMeanAndIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.create(t)
	ctx := context.Background()

	for _, sc := range []int{8, 7, 9, 6, 8} {
		if _, err := f.svc.SaveQA(ctx, f.user.ID, SaveQAInput{SessionID: s.ID, Question: "q", Answer: strPtr("a"), AIScore: intPtr(sc), AIFeedback: strPtr("ok")}); err != nil {
			t.Fatalf("save qa: %v", err)
		}
	}
	if _, err := f.svc.SaveQA(ctx, f.user.ID, SaveQAInput{SessionID: s.ID, Question: "sixth"}); !errors.Is(err, ErrQuestionLimit) {
		t.Fatalf("expected ErrQuestionLimit, got %v", err)
	}

	done, err := f.svc.Complete(ctx, f.user.ID, CompleteInput{SessionID: s.ID, Score: intPtr(3)})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Score == nil || *done.Score != 8 {
		t.Fatalf("expected server-side score 8, got %v", done.Score)
	}
	if done.EndedAt == nil || done.EndedAt.Before(done.StartedAt) {
		t.Fatalf("expected ended_at >= started_at")
	}

	var fb session.Summary
	if err := json.Unmarshal(done.Feedback, &fb); err != nil {
		t.Fatalf("feedback json: %v", err)
	}
	if !fb.Completed || fb.AverageScore != 8 || fb.Answered != 5 || fb.Reason != session.ReasonManual {
		t.Fatalf("unexpected feedback %+v", fb)
	}

	again, err := f.svc.Complete(ctx, f.user.ID, CompleteInput{SessionID: s.ID, Feedback: json.RawMessage(`{"other":true}`)})
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if !again.EndedAt.Equal(*done.EndedAt) || *again.Score != 8 || string(again.Feedback) != string(done.Feedback) {
		t.Fatalf("expected second completion to be a no-op")
	}

	if _, err := f.svc.SaveQA(ctx, f.user.ID, SaveQAInput{SessionID: s.ID, Question: "late"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed session, got %v", err)
	}
}

func TestComplete_NoAnswersScoresZero(t *testing.T) {
	f := newFixture(t)
	s := f.create(t)

	done, err := f.svc.Complete(context.Background(), f.user.ID, CompleteInput{SessionID: s.ID, Reason: session.ReasonTimeout})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Score == nil || *done.Score != 0 {
		t.Fatalf("expected score 0, got %v", done.Score)
	}
	if _, err := f.svc.SaveQA(context.Background(), f.user.ID, SaveQAInput{SessionID: s.ID, Question: "late"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestComplete_RejectsInvalidFeedback(t *testing.T) {
	f := newFixture(t)
	s := f.create(t)
	_, err := f.svc.Complete(context.Background(), f.user.ID, CompleteInput{SessionID: s.ID, Feedback: json.RawMessage(`{broken`)})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSaveQA_Validation(t *testing.T) {
	f := newFixture(t)
	s := f.create(t)
	ctx := context.Background()

	if _, err := f.svc.SaveQA(ctx, f.user.ID, SaveQAInput{SessionID: s.ID, Question: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank question, got %v", err)
	}
	if _, err := f.svc.SaveQA(ctx, f.user.ID, SaveQAInput{SessionID: s.ID, Question: "q", AIScore: intPtr(11)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for score 11, got %v", err)
	}
	if _, err := f.svc.SaveQA(ctx, uuid.New(), SaveQAInput{SessionID: s.ID, Question: "q"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestGetAndReport(t *testing.T) {
	f := newFixture(t)
	s := f.create(t)
	ctx := context.Background()

	if _, err := f.svc.SaveQA(ctx, f.user.ID, SaveQAInput{SessionID: s.ID, Question: "Explain VaR", Answer: strPtr("A quantile."), AIScore: intPtr(9), AIFeedback: strPtr("Precise.")}); err != nil {
		t.Fatalf("save qa: %v", err)
	}
	if _, err := f.svc.Complete(ctx, f.user.ID, CompleteInput{SessionID: s.ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	d, err := f.svc.Get(ctx, f.user.ID, s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(d.QAs) != 1 || d.Session.Status() != session.StatusCompleted {
		t.Fatalf("unexpected detail %+v", d)
	}

	report, err := f.svc.Report(ctx, f.user.ID, s.ID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	for _, want := range []string{"Interview Results - trader technical", "Overall Score: 9/10 (Excellent)", "1. Explain VaR", "Answer: A quantile.", "Score: 9/10", "Feedback: Precise."} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}

	if _, err := f.svc.Get(ctx, uuid.New(), s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
}
