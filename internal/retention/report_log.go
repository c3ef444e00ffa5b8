package retention

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type ReportLog interface {
	Save(ctx context.Context, rep Report) error
	Last(ctx context.Context) (Report, bool, error)
}

const lastReportKey = "retention:last_report"

// RedisReportLog keeps the latest sweep report so any API instance can
// answer cleanup-status.
type RedisReportLog struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewRedisReportLog(client goredis.Cmdable) *RedisReportLog {
	return &RedisReportLog{client: client, ttl: 30 * 24 * time.Hour}
}

func (l *RedisReportLog) Save(ctx context.Context, rep Report) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return l.client.Set(ctx, lastReportKey, b, l.ttl).Err()
}

func (l *RedisReportLog) Last(ctx context.Context) (Report, bool, error) {
	b, err := l.client.Get(ctx, lastReportKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, err
	}
	var rep Report
	if err := json.Unmarshal(b, &rep); err != nil {
		return Report{}, false, err
	}
	return rep, true, nil
}
