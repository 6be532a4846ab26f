package services

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker pings the Redis server holding visitor sessions
type RedisChecker struct {
	BaseChecker
	client *redis.Client
}

// NewRedisChecker creates a checker over an existing client
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{
		BaseChecker: BaseChecker{serviceType: "redis"},
		client:      client,
	}
}

// HealthCheck verifies Redis connectivity
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
