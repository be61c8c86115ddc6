package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quantprep/internal/config"
	"quantprep/internal/database"
	"quantprep/internal/database/migration"
	dbpostgres "quantprep/internal/database/postgres"
	"quantprep/internal/domain/interview"
	"quantprep/internal/domain/session"
	"quantprep/internal/domain/user"
	"quantprep/migrations"

	"github.com/google/uuid"
)

func connectTestDB(t *testing.T, ctx context.Context) database.DB {
	t.Helper()

	host := firstNonEmpty(os.Getenv("QUANTPREP_TEST_DB_HOST"), os.Getenv("DB_HOST"))
	port := firstNonEmpty(os.Getenv("QUANTPREP_TEST_DB_PORT"), os.Getenv("DB_PORT"))
	name := firstNonEmpty(os.Getenv("QUANTPREP_TEST_DB_NAME"), os.Getenv("DB_NAME"))
	usr := firstNonEmpty(os.Getenv("QUANTPREP_TEST_DB_USER"), os.Getenv("DB_USER"))
	pass := firstNonEmpty(os.Getenv("QUANTPREP_TEST_DB_PASSWORD"), os.Getenv("DB_PASSWORD"))
	ssl := firstNonEmpty(os.Getenv("QUANTPREP_TEST_DB_SSL_MODE"), os.Getenv("DB_SSL_MODE"), "disable")

	if host == "" || port == "" || name == "" || usr == "" {
		t.Skip("missing test DB env vars: set QUANTPREP_TEST_DB_HOST/PORT/NAME/USER/PASSWORD (or DB_HOST/DB_PORT/DB_NAME/DB_USER/DB_PASSWORD)")
	}

	db, err := dbpostgres.Connect(ctx, config.DatabaseConfig{
		DBHost:     host,
		DBPort:     port,
		DBName:     name,
		DBUser:     usr,
		DBPassword: pass,
		DBSSLMode:  ssl,
	})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	if _, err := (migration.Runner{FS: migrations.FS}).Run(ctx, db.SQLDB()); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func createTestUser(t *testing.T, ctx context.Context, db database.DB) user.User {
	t.Helper()
	repo := NewUserRepository(db)
	u, err := repo.Create(ctx, user.User{Email: "it-" + uuid.NewString() + "@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, u.ID)
	})
	return u
}

func TestIntegration_UserRepository(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := connectTestDB(t, ctx)
	defer func() { _ = db.Close() }()

	repo := NewUserRepository(db)
	u := createTestUser(t, ctx, db)

	if _, err := repo.Create(ctx, user.User{Email: u.Email}); !errors.Is(err, user.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	cust := "cus_" + uuid.NewString()
	plan := user.PlanPro
	n, err := repo.UpdateSubscriptionByEmail(ctx, u.Email, user.SubscriptionUpdate{Status: user.StatusActive, Plan: &plan, CustomerID: &cust})
	if err != nil || n != 1 {
		t.Fatalf("update by email: n=%d err=%v", n, err)
	}
	n, err = repo.UpdateSubscriptionByCustomerID(ctx, cust, user.SubscriptionUpdate{Status: user.StatusInactive})
	if err != nil || n != 1 {
		t.Fatalf("update by customer: n=%d err=%v", n, err)
	}

	got, err := repo.GetByEmail(ctx, u.Email)
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.SubscriptionStatus != user.StatusInactive || got.SubscriptionPlan != user.PlanPro {
		t.Fatalf("unexpected subscription state: %s/%s", got.SubscriptionStatus, got.SubscriptionPlan)
	}
	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_SessionRepository_QuotaAndCompletion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := connectTestDB(t, ctx)
	defer func() { _ = db.Close() }()

	u := createTestUser(t, ctx, db)
	repo := NewSessionRepository(db)
	q := session.Quota{Since: session.MonthStart(time.Now()), Limit: 3}

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateWithQuota(ctx, session.Session{
				UserID:     u.ID,
				Role:       interview.RoleTrader,
				RoundType:  interview.RoundTechnical,
				Difficulty: interview.DifficultyHard,
			}, q)
			if err == nil {
				created.Add(1)
			} else if !errors.Is(err, session.ErrQuotaExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if created.Load() != 3 {
		t.Fatalf("expected 3 sessions, got %d", created.Load())
	}

	list, err := repo.ListByUser(ctx, u.ID)
	if err != nil || len(list) != 3 {
		t.Fatalf("list: len=%d err=%v", len(list), err)
	}
	sess := list[0]

	for _, sc := range []int{8, 7, 9, 6, 8} {
		v := sc
		if _, err := repo.AppendQA(ctx, session.QA{SessionID: sess.ID, Question: "q", AIScore: &v}, 5); err != nil {
			t.Fatalf("append qa: %v", err)
		}
	}
	if _, err := repo.AppendQA(ctx, session.QA{SessionID: sess.ID, Question: "extra"}, 5); !errors.Is(err, session.ErrQuestionLimit) {
		t.Fatalf("expected ErrQuestionLimit, got %v", err)
	}

	done, err := repo.Complete(ctx, sess.ID, time.Now(), []byte(`{"completed":true}`))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Score == nil || *done.Score != 8 {
		t.Fatalf("expected score 8, got %v", done.Score)
	}
	if _, err := repo.AppendQA(ctx, session.QA{SessionID: sess.ID, Question: "late"}, 0); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
