package repository

import (
	"context"

	"SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/cache"
)

const settingsPrefix = "settings"

// RedisSettings implements SettingsStore on the shared cache service.
// Settings are durable preferences (positions, watchlist tweaks), so no
// expiration is set.
type RedisSettings struct {
	cache cache.Service
}

func NewRedisSettings(c cache.Service) repository.SettingsStore {
	return &RedisSettings{cache: c}
}

func (s *RedisSettings) Get(ctx context.Context, key string, dest interface{}) error {
	return s.cache.Get(ctx, cache.GenerateKey(settingsPrefix, key), dest)
}

func (s *RedisSettings) Set(ctx context.Context, key string, value interface{}) error {
	return s.cache.Set(ctx, cache.GenerateKey(settingsPrefix, key), value, 0)
}
