package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lox/clearskies/internal/metrics"
)

// Cache stores raw forecast payloads by key.
// Get returns (nil, false, nil) on a miss or expired entry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ForecastKey identifies a payload by coordinate, rounded to two decimals
// (about 1km), and unit.
func ForecastKey(lat, lon float64, unit string) string {
	return fmt.Sprintf("forecast:%.2f:%.2f:%s", lat, lon, unit)
}

// Memory is an in-process Cache with TTL expiry. Expired entries are removed
// on access.
type Memory struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

func (c *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.data, key)
		metrics.CacheLookups.WithLabelValues("memory", "expired").Inc()
		return nil, false, nil
	}
	metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
	return e.value, true, nil
}

func (c *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
