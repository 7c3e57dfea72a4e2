package redis

import (
	"context"
	"time"

	"github.com/bujia-iot/multiverse-display/internal/infrastructure/config"
	"github.com/bujia-iot/multiverse-display/internal/infrastructure/logger"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// NewClient 创建Redis客户端并测试连接
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	// 测试连接
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrRedisConnectionFailed, "Redis连接测试失败", err)
	}

	logger.WithField("address", cfg.Address).Info("Redis连接初始化成功")
	return client, nil
}
