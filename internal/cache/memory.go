package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/conectacordoba/marketplace-backend/internal/goroutine"
)

const defaultCleanupInterval = 5 * time.Minute

// MemoryCache - кэш в памяти процесса с TTL.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache создаёт кэш и запускает очистку просроченных записей до отмены ctx.
func NewMemoryCache(ctx context.Context, cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	mc := &MemoryCache{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
	goroutine.Run(ctx, "cache-janitor", func(ctx context.Context) {
		mc.janitor(ctx, cleanupInterval)
	})
	return mc
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.RLock()
	entry, ok := mc.items[key]
	mc.mu.RUnlock()

	// Просроченные записи удаляет janitor.
	if !ok || mc.now().After(entry.expiresAt) {
		return ErrMiss
	}
	return json.Unmarshal(entry.data, dest)
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.items[key] = memoryEntry{data: data, expiresAt: mc.now().Add(ttl)}
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.items, key)
	}
	return nil
}

// DeleteByPrefix удаляет все ключи с указанным префиксом.
func (mc *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for key := range mc.items {
		if strings.HasPrefix(key, prefix) {
			delete(mc.items, key)
		}
	}
	return nil
}

// Len возвращает число записей, включая ещё не очищенные просроченные.
func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.items)
}

func (mc *MemoryCache) janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mc.evictExpired()
		}
	}
}

func (mc *MemoryCache) evictExpired() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := mc.now()
	for key, entry := range mc.items {
		if now.After(entry.expiresAt) {
			delete(mc.items, key)
		}
	}
}
