package cache

import (
	"context"
	"errors"
	"time"

	"github.com/conectacordoba/marketplace-backend/internal/logger"
)

// ErrMiss возвращается, когда ключа нет или срок его жизни истёк.
var ErrMiss = errors.New("cache: miss")

// Cache хранит значения в виде JSON, чтобы память и Redis были взаимозаменяемы.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Ключи кэша публичных подборок.
const (
	KeyFeaturedProfessionals = "professionals:featured"
	KeyProfessionalStats     = "professionals:stats"
	PrefixProfessionals      = "professionals:"
)

// GetOrSet возвращает значение из кэша или вычисляет его через fn и сохраняет.
// Ошибки кэша логируются и не прерывают вызов.
func GetOrSet[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		logger.Component("cache").WithError(err).WithField("key", key).Warn("cache read failed")
	}

	value, err := fn()
	if err != nil {
		return value, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		logger.Component("cache").WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return value, nil
}
