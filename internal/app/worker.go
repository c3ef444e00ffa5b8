package app

import (
	"github.com/hibiken/asynq"

	"face-score/internal/config"
	"face-score/internal/logger"
	"face-score/internal/retention"
)

const maintenanceQueue = "maintenance"

// Worker runs the asynq server that processes sweeps and the scheduler
// that enqueues them on CLEANUP_CRON.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	cron      string
}

func newWorker(cfg config.Config, infra *Infra) *Worker {
	opt := infra.queueOpt()

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			maintenanceQueue: 1,
			"default":        1,
		},
	})

	mux := asynq.NewServeMux()
	infra.Sweeper.Register(mux)

	return &Worker{
		server:    server,
		scheduler: asynq.NewScheduler(opt, nil),
		mux:       mux,
		cron:      cfg.CleanupCron,
	}
}

// Start is non-blocking.
func (w *Worker) Start() error {
	entryID, err := retention.Schedule(w.scheduler, w.cron, maintenanceQueue)
	if err != nil {
		return err
	}
	if err := w.scheduler.Start(); err != nil {
		return err
	}
	if err := w.server.Start(w.mux); err != nil {
		w.scheduler.Shutdown()
		return err
	}

	logger.Info("queue worker started", map[string]any{
		"queue":    maintenanceQueue,
		"cron":     w.cron,
		"entry_id": entryID,
	})
	return nil
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}
