package config

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectRedis connects the key-value store.
func ConnectRedis(ctx context.Context, s *Settings, logg logrus.FieldLogger) (*redis.Client, error) {
	var rdb *redis.Client
	err := connectWithRetry(ctx, logg, "redis", s.ConnectAttempts, func() error {
		client := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddress,
			Password: "",
			DB:       0, // use default DB
			PoolSize: max(s.SessionWorkers*2, 10),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return err
		}
		rdb = client
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rdb, nil
}
