package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client is the shared Redis connection behind sessions and rate counters.
type Client struct {
	*goredis.Client
	Addr     string
	Password string
	DB       int
}

func New(addr, password string, db int) (*Client, error) {

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Client{Client: client, Addr: addr, Password: password, DB: db}, nil

}
