package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"face-score/internal/config"
)

// Mode selects which halves of the service a process runs.
type Mode string

const (
	ModeAPI    Mode = "api"
	ModeWorker Mode = "worker"
	ModeAll    Mode = "all"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAPI, ModeWorker, ModeAll:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (want api, worker or all)", s)
}

func (m Mode) api() bool    { return m == ModeAPI || m == ModeAll }
func (m Mode) worker() bool { return m == ModeWorker || m == ModeAll }

type App struct {
	mode       Mode
	infra      *Infra
	httpServer *http.Server
	queue      *asynq.Client
	worker     *Worker
}

func New(ctx context.Context, cfg config.Config, mode Mode) (*App, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{mode: mode, infra: infra}

	if mode.api() {
		a.queue = asynq.NewClient(infra.queueOpt())
		router, err := setupHTTP(ctx, cfg, infra, a.queue)
		if err != nil {
			_ = a.close()
			return nil, err
		}
		a.httpServer = &http.Server{
			Addr:              ":" + cfg.AppPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	if mode.worker() {
		a.worker = newWorker(cfg, infra)
	}
	return a, nil
}

// Run starts the worker (if any) and then serves HTTP (if any). It
// returns once the HTTP server stops, or immediately in worker mode.
func (a *App) Run() error {
	if a.worker != nil {
		if err := a.worker.Start(); err != nil {
			return err
		}
	}
	if a.httpServer == nil {
		return nil
	}
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	if a.worker != nil {
		a.worker.Shutdown()
	}
	return a.close()
}

func (a *App) close() error {
	var errs []error
	if a.queue != nil {
		errs = append(errs, a.queue.Close())
	}
	errs = append(errs, a.infra.Close())
	return errors.Join(errs...)
}
