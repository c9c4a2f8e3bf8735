package history

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"trackerwatch/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndRecentChecks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	recs := []CheckRecord{
		{TargetName: "A", Status: model.StatusClosed, DurationMS: 120, CheckedAt: base},
		{TargetName: "B", Status: model.StatusUnknown, FetchError: "fetch https://b.example/: timeout", CheckedAt: base.Add(2 * time.Second)},
		{TargetName: "A", Status: model.StatusOpen, Notified: true, DurationMS: 95, CheckedAt: base.Add(10 * time.Minute)},
	}
	for i := range recs {
		if err := s.RecordCheck(ctx, &recs[i]); err != nil {
			t.Fatalf("record check %d: %v", i, err)
		}
		if recs[i].ID == 0 {
			t.Errorf("record %d: ID not populated", i)
		}
	}

	got, err := s.RecentChecks(ctx, 10)
	if err != nil {
		t.Fatalf("recent checks: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}

	// Newest first.
	var names []string
	for _, rec := range got {
		names = append(names, rec.TargetName)
	}
	if diff := cmp.Diff([]string{"A", "B", "A"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	newest := got[0]
	if newest.Status != model.StatusOpen || !newest.Notified {
		t.Errorf("newest record = %+v, want open/notified", newest)
	}
	if !newest.CheckedAt.Equal(base.Add(10 * time.Minute)) {
		t.Errorf("checked_at = %v, want %v", newest.CheckedAt, base.Add(10*time.Minute))
	}
}

func TestRecentChecksLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		rec := CheckRecord{TargetName: "T", Status: model.StatusClosed, CheckedAt: time.Now().UTC()}
		if err := s.RecordCheck(ctx, &rec); err != nil {
			t.Fatalf("record check: %v", err)
		}
	}

	got, err := s.RecentChecks(ctx, 2)
	if err != nil {
		t.Fatalf("recent checks: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records, got %d", len(got))
	}
}

func TestLastTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	for i, rec := range []CheckRecord{
		{TargetName: "A", Status: model.StatusClosed, CheckedAt: base},
		{TargetName: "A", Status: model.StatusOpen, Notified: true, CheckedAt: base.Add(time.Minute)},
		{TargetName: "B", Status: model.StatusOpen, Notified: true, CheckedAt: base.Add(2 * time.Minute)},
		{TargetName: "A", Status: model.StatusOpen, CheckedAt: base.Add(3 * time.Minute)},
	} {
		if err := s.RecordCheck(ctx, &rec); err != nil {
			t.Fatalf("record check %d: %v", i, err)
		}
	}

	got, err := s.LastTransitions(ctx, 10)
	if err != nil {
		t.Fatalf("last transitions: %v", err)
	}

	var names []string
	for _, rec := range got {
		names = append(names, rec.TargetName)
	}
	if diff := cmp.Diff([]string{"B", "A"}, names); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyStore(t *testing.T) {
	s := newTestStore(t)

	got, err := s.RecentChecks(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent checks: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}
