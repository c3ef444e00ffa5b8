package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSweep = "retention:sweep"

type sweepPayload struct {
	// Cutoff overrides the configured window when set.
	Cutoff *time.Time `json:"cutoff,omitempty"`
}

// NewSweepTask builds a sweep task. A zero cutoff uses the retention window
// at processing time.
func NewSweepTask(cutoff time.Time) (*asynq.Task, error) {
	var p sweepPayload
	if !cutoff.IsZero() {
		c := cutoff.UTC()
		p.Cutoff = &c
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSweep, b, asynq.MaxRetry(3), asynq.Timeout(30*time.Minute)), nil
}

// ProcessTask makes Sweeper an asynq.Handler.
func (s *Sweeper) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p sweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
	}
	var err error
	if p.Cutoff != nil {
		_, err = s.SweepBefore(ctx, *p.Cutoff)
	} else {
		_, err = s.Sweep(ctx)
	}
	return err
}

// Register wires the sweep handler into mux.
func (s *Sweeper) Register(mux *asynq.ServeMux) {
	mux.Handle(TaskSweep, s)
}

// Schedule registers the periodic sweep on cronspec and returns the entry id.
func Schedule(sch *asynq.Scheduler, cronspec, queue string) (string, error) {
	task, err := NewSweepTask(time.Time{})
	if err != nil {
		return "", err
	}
	opts := []asynq.Option{asynq.Unique(time.Hour)}
	if queue != "" {
		opts = append(opts, asynq.Queue(queue))
	}
	return sch.Register(cronspec, task, opts...)
}
