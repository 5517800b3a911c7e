package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// Pinger - проверка доступности зависимости.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	db      *sqlx.DB
	cache   Pinger
	version string
}

// NewHealthHandler создаёт health handler. cache может быть nil, если Redis не настроен.
func NewHealthHandler(db *sqlx.DB, cache Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, version: version}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Pool      *PoolStats        `json:"pool,omitempty"`
}

type PoolStats struct {
	Open    int `json:"open"`
	InUse   int `json:"in_use"`
	Idle    int `json:"idle"`
	MaxOpen int `json:"max_open"`
}

// Health обрабатывает GET /api/health.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var pool *PoolStats
	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unhealthy"
		status = "unhealthy"
	} else {
		checks["database"] = "healthy"
		stats := h.db.Stats()
		pool = &PoolStats{
			Open:    stats.OpenConnections,
			InUse:   stats.InUse,
			Idle:    stats.Idle,
			MaxOpen: stats.MaxOpenConnections,
		}
	}

	if h.cache != nil {
		// кэш не обязателен, его падение только понижает статус
		if err := h.cache.PingContext(ctx); err != nil {
			checks["cache"] = "unhealthy"
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["cache"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Version:   h.version,
		Timestamp: time.Now(),
		Checks:    checks,
		Pool:      pool,
	})
}
