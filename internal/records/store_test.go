package records

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"face-score/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.Open(context.Background(), "sqlite", "file:"+filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return NewStore(d)
}

func hashOf(i int) string {
	return fmt.Sprintf("%064x", i)
}

func TestUpsertUpdatesInsteadOfDuplicating(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.Upsert(ctx, ScoreRecord{ContentHash: hashOf(1), Score: 70, Comment: "first", Gender: Female, Age: 25, CreatedAt: t0})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if first.ID != "face_"+hashOf(1) {
		t.Fatalf("unexpected id %q", first.ID)
	}

	t1 := t0.Add(time.Hour)
	second, err := s.Upsert(ctx, ScoreRecord{ContentHash: hashOf(1), Score: 88.5, Comment: "second", Gender: Female, Age: 26, CreatedAt: t1})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("ids differ: %s vs %s", first.ID, second.ID)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 record, got %d (%v)", n, err)
	}
	got, err := s.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Score != 88.5 || got.Comment != "second" || !got.CreatedAt.Equal(t1) || got.Age != 26 {
		t.Fatalf("record not refreshed: %+v", got)
	}
	if got.Kind != KindScore {
		t.Fatalf("default kind should be score, got %q", got.Kind)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "face_nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPaginationAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		_, err := s.Upsert(ctx, ScoreRecord{
			ContentHash: hashOf(i),
			Score:       float64(i),
			Comment:     "c",
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
	}

	page, err := s.List(ctx, ListQuery{Page: 2, Limit: 10, SortBy: SortScore, Desc: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	p := page.Pagination
	if p.Total != 25 || p.TotalPages != 3 || !p.HasNext || !p.HasPrev || len(page.Records) != 10 {
		t.Fatalf("unexpected pagination %+v (%d records)", p, len(page.Records))
	}
	if page.Records[0].Score != 14 {
		t.Fatalf("expected score 14 first on page 2, got %v", page.Records[0].Score)
	}

	page, err = s.List(ctx, ListQuery{Limit: 100, From: base.Add(20 * time.Hour)})
	if err != nil {
		t.Fatalf("List from: %v", err)
	}
	if page.Pagination.Total != 5 || page.Records[0].Score != 20 {
		t.Fatalf("date filter wrong: %+v", page.Pagination)
	}

	page, err = s.List(ctx, ListQuery{From: base.Add(100 * time.Hour)})
	if err != nil {
		t.Fatalf("List future: %v", err)
	}
	if len(page.Records) != 0 || page.Pagination.HasNext {
		t.Fatalf("expected empty page, got %+v", page.Pagination)
	}
}

func TestGetAndDeleteByIDsInBatches(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	var ids []string
	for i := 0; i < 45; i++ {
		rec, err := s.Upsert(ctx, ScoreRecord{ContentHash: hashOf(i), Score: 50})
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	got, err := s.GetByIDs(ctx, append(ids[:41:41], "face_missing", ids[0]))
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 41 {
		t.Fatalf("expected 41 records, got %d", len(got))
	}

	n, err := s.DeleteByIDs(ctx, append(ids[:41:41], "face_missing"))
	if err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	if n != 41 {
		t.Fatalf("expected 41 deleted, got %d", n)
	}
	left, _ := s.Count(ctx)
	if left != 4 {
		t.Fatalf("expected 4 left, got %d", left)
	}
}

func TestOlderThanAndDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	ages := []time.Duration{0, 24 * time.Hour, 400 * 24 * time.Hour, 500 * 24 * time.Hour}
	for i, age := range ages {
		if _, err := s.Upsert(ctx, ScoreRecord{ContentHash: hashOf(i), CreatedAt: now.Add(-age)}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	cutoff := now.AddDate(0, -6, 0)

	old, err := s.OlderThan(ctx, cutoff)
	if err != nil || len(old) != 2 {
		t.Fatalf("expected 2 old records, got %d (%v)", len(old), err)
	}

	rs, err := s.RetentionStats(ctx, cutoff)
	if err != nil {
		t.Fatalf("RetentionStats: %v", err)
	}
	if rs.Total != 4 || rs.Expired != 2 || rs.Retained != 2 || rs.Oldest == nil {
		t.Fatalf("unexpected retention stats %+v", rs)
	}

	n, err := s.DeleteOlderThan(ctx, cutoff)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 deleted, got %d (%v)", n, err)
	}
	n, err = s.DeleteOlderThan(ctx, cutoff)
	if err != nil || n != 0 {
		t.Fatalf("second delete should be empty, got %d (%v)", n, err)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	times := []time.Time{
		now.Add(-time.Hour),
		now.Add(-48 * time.Hour),
		time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
	}
	for i, ts := range times {
		if _, err := s.Upsert(ctx, ScoreRecord{ContentHash: hashOf(i), CreatedAt: ts}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	st, err := s.Stats(ctx, now)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 3 || st.Today != 1 || st.ThisMonth != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.Newest == nil || !st.Newest.Equal(times[0]) {
		t.Fatalf("unexpected newest %v", st.Newest)
	}
}

func TestParseGender(t *testing.T) {
	cases := map[string]Gender{"Male": Male, "female": Female, "": Other, "x": Other}
	for in, want := range cases {
		if got := ParseGender(in); got != want {
			t.Fatalf("ParseGender(%q) = %q, want %q", in, got, want)
		}
	}
}
