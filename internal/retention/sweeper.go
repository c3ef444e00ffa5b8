package retention

import (
	"context"
	"fmt"
	"time"

	"face-score/internal/logger"
	"face-score/internal/records"
)

const DefaultMonths = 6

// Records is the part of the metadata store a sweep needs.
type Records interface {
	OlderThan(ctx context.Context, cutoff time.Time) ([]records.ScoreRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	RetentionStats(ctx context.Context, cutoff time.Time) (records.RetentionStats, error)
}

// Objects deletes a stored image by content id. Deleting a missing image
// must succeed.
type Objects interface {
	Delete(ctx context.Context, id string) error
}

type Report struct {
	Cutoff         time.Time `json:"cutoff"`
	DeletedRecords int       `json:"deleted_records"`
	DeletedImages  int       `json:"deleted_images"`
	FailedImages   int       `json:"failed_images"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

type Status struct {
	RetentionMonths int                    `json:"retention_months"`
	Stats           records.RetentionStats `json:"stats"`
	Compliant       bool                   `json:"compliant"`
	LastSweep       *Report                `json:"last_sweep,omitempty"`
}

type Sweeper struct {
	Records Records
	Objects Objects
	Months  int
	Now     func() time.Time
	// Log keeps the most recent report. Optional.
	Log ReportLog
}

func New(rec Records, obj Objects, months int) *Sweeper {
	if months <= 0 {
		months = DefaultMonths
	}
	return &Sweeper{Records: rec, Objects: obj, Months: months, Now: time.Now}
}

func (s *Sweeper) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Cutoff is the oldest creation time still inside the retention window.
func (s *Sweeper) Cutoff() time.Time {
	months := s.Months
	if months <= 0 {
		months = DefaultMonths
	}
	return s.now().UTC().AddDate(0, -months, 0)
}

func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	return s.SweepBefore(ctx, s.Cutoff())
}

// SweepBefore deletes the image of every record created before cutoff,
// then removes all those records in a single transaction. Image failures
// are counted and never stop the sweep.
func (s *Sweeper) SweepBefore(ctx context.Context, cutoff time.Time) (Report, error) {
	rep := Report{Cutoff: cutoff.UTC(), StartedAt: s.now().UTC()}

	expired, err := s.Records.OlderThan(ctx, cutoff)
	if err != nil {
		return rep, fmt.Errorf("select expired records: %w", err)
	}

	for _, rec := range expired {
		if err := s.Objects.Delete(ctx, rec.ContentHash); err != nil {
			rep.FailedImages++
			logger.Warn("retention: image delete failed", map[string]any{
				"id":    rec.ID,
				"error": err,
			})
			continue
		}
		rep.DeletedImages++
	}

	n, err := s.Records.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return rep, fmt.Errorf("delete expired records: %w", err)
	}
	rep.DeletedRecords = n
	rep.FinishedAt = s.now().UTC()

	logger.Info("retention sweep finished", map[string]any{
		"cutoff":          rep.Cutoff.Format(time.RFC3339),
		"deleted_records": rep.DeletedRecords,
		"deleted_images":  rep.DeletedImages,
		"failed_images":   rep.FailedImages,
	})

	if s.Log != nil {
		if err := s.Log.Save(ctx, rep); err != nil {
			logger.Warn("retention: saving report failed", map[string]any{"error": err})
		}
	}
	return rep, nil
}

func (s *Sweeper) Status(ctx context.Context) (Status, error) {
	st, err := s.Records.RetentionStats(ctx, s.Cutoff())
	if err != nil {
		return Status{}, err
	}
	out := Status{
		RetentionMonths: s.Months,
		Stats:           st,
		Compliant:       st.Expired == 0,
	}
	if s.Log != nil {
		last, ok, err := s.Log.Last(ctx)
		if err != nil {
			logger.Warn("retention: loading last report failed", map[string]any{"error": err})
		} else if ok {
			out.LastSweep = &last
		}
	}
	return out, nil
}
