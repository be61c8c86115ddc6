package session

import (
	"testing"
	"time"
)

func scored(scores ...int) []QA {
	out := make([]QA, 0, len(scores))
	for _, s := range scores {
		v := s
		out = append(out, QA{AIScore: &v})
	}
	return out
}

func TestAggregateScore_RoundedMean(t *testing.T) {
	if got := AggregateScore(scored(8, 7, 9, 6, 8)); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
	if got := AggregateScore(scored(7, 8)); got != 8 {
		t.Fatalf("expected 7.5 to round up to 8, got %d", got)
	}
	if got := AggregateScore(scored(6, 7, 7)); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestAggregateScore_Empty(t *testing.T) {
	if got := AggregateScore(nil); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := AggregateScore([]QA{{}, {}}); got != 0 {
		t.Fatalf("expected 0 for unscored QAs, got %d", got)
	}
}

func TestAggregateScore_SkipsUnscored(t *testing.T) {
	qas := append(scored(9), QA{})
	if got := AggregateScore(qas); got != 9 {
		t.Fatalf("expected unscored QA excluded, got %d", got)
	}
}

func TestMonthStart_UTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2026-03-01 05:00 at UTC+9 is still February in UTC.
	in := time.Date(2026, 3, 1, 5, 0, 0, 0, loc)
	got := MonthStart(in)
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestQuota_Unlimited(t *testing.T) {
	if !(Quota{}).Unlimited() {
		t.Fatalf("expected zero quota to be unlimited")
	}
	if (Quota{Limit: 3}).Unlimited() {
		t.Fatalf("expected limit 3 to be bounded")
	}
}

func TestMonthlyQuota(t *testing.T) {
	now := time.Date(2026, 3, 31, 23, 59, 0, 0, time.FixedZone("x", -5*3600))

	q := MonthlyQuota(false, 3, now)
	if q.Unlimited() || q.Limit != 3 {
		t.Fatalf("expected limited quota, got %+v", q)
	}
	if !q.Since.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected UTC month start, got %s", q.Since)
	}
	if !MonthlyQuota(true, 3, now).Unlimited() {
		t.Fatalf("expected paying users to be unlimited")
	}
}
