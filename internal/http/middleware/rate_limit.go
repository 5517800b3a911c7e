package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
	"github.com/conectacordoba/marketplace-backend/internal/logger"
)

// NewRateLimitStore возвращает хранилище счётчиков: Redis, если клиент передан, иначе память процесса.
func NewRateLimitStore(client *redis.Client, prefix string) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		}), nil
	}
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   prefix,
		MaxRetry: limiter.DefaultMaxRetry,
	})
}

// RateLimitMiddleware ограничивает число запросов с одного IP.
// name разделяет счётчики разных лимитов в общем хранилище.
// По умолчанию: 100 запросов за 15 минут.
func RateLimitMiddleware(store limiter.Store, name string, limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 100
	}
	if period <= 0 {
		period = 15 * time.Minute
	}

	instance := limiter.New(store, limiter.Rate{
		Period: period,
		Limit:  limit,
	})

	return func(c *gin.Context) {
		ctx, err := instance.Get(c.Request.Context(), name+":"+c.ClientIP())
		if err != nil {
			// без хранилища счётчиков запрос пропускается
			logger.Component("rate_limit").WithError(err).Warn("rate limit store unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))

		if ctx.Reached {
			response.TooManyRequests(c, "demasiadas solicitudes, intente más tarde")
			c.Abort()
			return
		}

		c.Next()
	}
}
