package records

import (
	"context"
	"database/sql"
	"time"
)

func (s *Store) bounds(ctx context.Context) (oldest, newest *time.Time, err error) {
	var lo, hi sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MIN(created_at), MAX(created_at) FROM face_scores").Scan(&lo, &hi); err != nil {
		return nil, nil, err
	}
	if lo.Valid {
		t := fromMillis(lo.Int64)
		oldest = &t
	}
	if hi.Valid {
		t := fromMillis(hi.Int64)
		newest = &t
	}
	return oldest, newest, nil
}

func (s *Store) countSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.db.Rebind("SELECT COUNT(*) FROM face_scores WHERE created_at >= ?"),
		toMillis(since),
	).Scan(&n)
	return n, err
}

// RetentionStats splits the table around cutoff.
func (s *Store) RetentionStats(ctx context.Context, cutoff time.Time) (RetentionStats, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return RetentionStats{}, err
	}
	retained, err := s.countSince(ctx, cutoff)
	if err != nil {
		return RetentionStats{}, err
	}
	oldest, newest, err := s.bounds(ctx)
	if err != nil {
		return RetentionStats{}, err
	}
	return RetentionStats{
		Total:    total,
		Expired:  total - retained,
		Retained: retained,
		Cutoff:   cutoff.UTC(),
		Oldest:   oldest,
		Newest:   newest,
	}, nil
}

// Stats reports totals relative to now, with day and month boundaries in UTC.
func (s *Store) Stats(ctx context.Context, now time.Time) (Stats, error) {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var st Stats
	var err error
	if st.Total, err = s.Count(ctx); err != nil {
		return Stats{}, err
	}
	if st.Today, err = s.countSince(ctx, dayStart); err != nil {
		return Stats{}, err
	}
	if st.ThisMonth, err = s.countSince(ctx, monthStart); err != nil {
		return Stats{}, err
	}
	if st.Oldest, st.Newest, err = s.bounds(ctx); err != nil {
		return Stats{}, err
	}
	return st, nil
}
