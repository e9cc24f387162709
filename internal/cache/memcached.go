package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/lox/clearskies/internal/metrics"
)

const keyPrefix = "clearskies:"

// maxRelativeExpiration is the largest TTL memcached treats as relative.
const maxRelativeExpiration = 30 * 24 * 60 * 60

// Memcached implements Cache on one or more memcached servers.
type Memcached struct {
	client *memcache.Client
}

// NewMemcached creates a Memcached cache. addrs is a comma-separated list of
// host:port; an empty list means localhost:11211.
func NewMemcached(addrs string, timeout time.Duration) *Memcached {
	servers := ParseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &Memcached{client: client}
}

func ParseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *Memcached) key(k string) string {
	// memcached keys may not contain spaces or control characters.
	return keyPrefix + strings.ReplaceAll(k, " ", "_")
}

func (c *Memcached) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			metrics.CacheLookups.WithLabelValues("memcached", "miss").Inc()
			return nil, false, nil
		}
		metrics.CacheLookups.WithLabelValues("memcached", "error").Inc()
		return nil, false, err
	}
	metrics.CacheLookups.WithLabelValues("memcached", "hit").Inc()
	return item.Value, true, nil
}

func (c *Memcached) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      value,
		Expiration: expirationSeconds(ttl),
	})
}

func expirationSeconds(ttl time.Duration) int32 {
	secs := int32(ttl.Seconds())
	if secs <= 0 || secs > maxRelativeExpiration {
		return 3600
	}
	return secs
}

// Ping checks that every server is reachable.
func (c *Memcached) Ping() error {
	return c.client.Ping()
}

func (c *Memcached) Close() error {
	return c.client.Close()
}
