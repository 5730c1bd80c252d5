package cache

import (
	"context"
	"fmt"

	"designhub/internal/platform/config"
	"designhub/internal/platform/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RDB *redis.Client

func ConnectRedis(ctx context.Context) error {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	if _, err := RDB.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("could not connect to Redis: %w", err)
	}
	logger.Info(ctx, "connected to Redis", zap.String("addr", config.AppConfig.RedisAddr))
	return nil
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		logger.Info(context.Background(), "redis connection closed")
	}
}
