package app

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/hibiken/asynq"

	"face-score/internal/config"
	"face-score/internal/db"
	"face-score/internal/logger"
	"face-score/internal/records"
	"face-score/internal/redis"
	"face-score/internal/retention"
	"face-score/internal/storage"
)

// Infra holds the shared stores every mode needs.
type Infra struct {
	DB      *db.DB
	Redis   *redis.Client
	Objects *storage.Objects
	Records *records.Store
	Sweeper *retention.Sweeper
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	database, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	logger.Info("database ready", map[string]any{"driver": cfg.DatabaseDriver})

	redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})

	objects, err := storage.NewObjects(filepath.Join(cfg.DataDir, "objects"))
	if err != nil {
		_ = database.Close()
		_ = redisClient.Close()
		return nil, err
	}

	store := records.NewStore(database)
	sweeper := retention.New(store, objects, cfg.RetentionMonths)
	sweeper.Log = retention.NewRedisReportLog(redisClient.Client)

	return &Infra{
		DB:      database,
		Redis:   redisClient,
		Objects: objects,
		Records: store,
		Sweeper: sweeper,
	}, nil
}

// queueOpt points asynq at the same Redis as sessions and counters.
func (i *Infra) queueOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     i.Redis.Addr,
		Password: i.Redis.Password,
		DB:       i.Redis.DB,
	}
}

func (i *Infra) Close() error {
	return errors.Join(i.DB.Close(), i.Redis.Close())
}
