package records

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"face-score/internal/db"
)

// batchSize bounds the number of ids per IN (...) clause.
const batchSize = 20

const columns = "id, content_hash, kind, score, comment, gender, age, image_url, created_at"

type Store struct {
	db  *db.DB
	now func() time.Time
}

func NewStore(d *db.DB) *Store {
	return &Store{db: d, now: time.Now}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (ScoreRecord, error) {
	var (
		r       ScoreRecord
		kind    string
		gender  string
		created int64
	)
	if err := s.Scan(&r.ID, &r.ContentHash, &kind, &r.Score, &r.Comment, &gender, &r.Age, &r.ImageURL, &created); err != nil {
		return ScoreRecord{}, err
	}
	r.Kind = Kind(kind)
	r.Gender = Gender(gender)
	r.CreatedAt = fromMillis(created)
	return r, nil
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Upsert inserts rec or, when a row with the same content hash exists,
// overwrites its mutable fields and refreshes created_at.
func (s *Store) Upsert(ctx context.Context, rec ScoreRecord) (ScoreRecord, error) {
	if rec.ContentHash == "" {
		return ScoreRecord{}, errors.New("records: content hash is required")
	}
	rec.ID = RecordID(rec.ContentHash)
	if rec.Kind == "" {
		rec.Kind = KindScore
	}
	if rec.Gender == "" {
		rec.Gender = Other
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.CreatedAt = fromMillis(toMillis(rec.CreatedAt))

	q := s.db.Rebind(`
INSERT INTO face_scores (` + columns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (content_hash) DO UPDATE SET
    kind = excluded.kind,
    score = excluded.score,
    comment = excluded.comment,
    gender = excluded.gender,
    age = excluded.age,
    image_url = excluded.image_url,
    created_at = excluded.created_at`)

	_, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.ContentHash, string(rec.Kind), rec.Score, rec.Comment,
		string(rec.Gender), rec.Age, rec.ImageURL, toMillis(rec.CreatedAt),
	)
	if err != nil {
		return ScoreRecord{}, err
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (ScoreRecord, error) {
	row := s.db.QueryRowContext(ctx,
		s.db.Rebind("SELECT "+columns+" FROM face_scores WHERE id = ?"),
		RecordID(HashFromID(id)),
	)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ScoreRecord{}, ErrNotFound
	}
	return r, err
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM face_scores").Scan(&n)
	return n, err
}

func (s *Store) List(ctx context.Context, q ListQuery) (Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}

	var (
		where []string
		args  []any
	)
	if !q.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, toMillis(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, toMillis(q.To))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT COUNT(*) FROM face_scores"+clause), args...).Scan(&total); err != nil {
		return Page{}, err
	}

	col := "created_at"
	if q.SortBy == SortScore {
		col = "score"
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	query := "SELECT " + columns + " FROM face_scores" + clause +
		" ORDER BY " + col + " " + dir + ", id " + dir + " LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), append(args, q.Limit, (q.Page-1)*q.Limit)...)
	if err != nil {
		return Page{}, err
	}
	recs, err := collect(rows)
	if err != nil {
		return Page{}, err
	}

	totalPages := (total + q.Limit - 1) / q.Limit
	return Page{
		Records: recs,
		Pagination: Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    q.Page < totalPages,
			HasPrev:    q.Page > 1,
		},
	}, nil
}

func collect(rows *sql.Rows) ([]ScoreRecord, error) {
	defer rows.Close()
	out := []ScoreRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = RecordID(HashFromID(strings.TrimSpace(id)))
		if _, ok := seen[id]; ok || id == idPrefix {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func chunk(ids []string, fn func(batch []any) error) error {
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := make([]any, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, id)
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

// GetByIDs returns the records that exist among ids. Missing ids are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]ScoreRecord, error) {
	out := []ScoreRecord{}
	err := chunk(normalizeIDs(ids), func(batch []any) error {
		rows, err := s.db.QueryContext(ctx,
			s.db.Rebind("SELECT "+columns+" FROM face_scores WHERE id IN ("+placeholders(len(batch))+")"),
			batch...,
		)
		if err != nil {
			return err
		}
		recs, err := collect(rows)
		if err != nil {
			return err
		}
		out = append(out, recs...)
		return nil
	})
	return out, err
}

// DeleteByIDs removes the given records in one transaction and returns how
// many rows went away.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	norm := normalizeIDs(ids)
	if len(norm) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	deleted := 0
	err = chunk(norm, func(batch []any) error {
		res, err := tx.ExecContext(ctx,
			s.db.Rebind("DELETE FROM face_scores WHERE id IN ("+placeholders(len(batch))+")"),
			batch...,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted += int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// OlderThan returns every record created strictly before cutoff.
func (s *Store) OlderThan(ctx context.Context, cutoff time.Time) ([]ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind("SELECT "+columns+" FROM face_scores WHERE created_at < ? ORDER BY created_at"),
		toMillis(cutoff),
	)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// DeleteOlderThan bulk-deletes every record created before cutoff. The
// delete either fully applies or is rolled back.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.db.Rebind("DELETE FROM face_scores WHERE created_at < ?"), toMillis(cutoff))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}
