package clients

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedOracle memoizes successful oracle responses. Cache failures never
// fail a request.
type CachedOracle struct {
	Next  Oracle
	Cache Cache
	TTL   time.Duration
}

func NewCachedOracle(next Oracle, cache Cache, ttl time.Duration) *CachedOracle {
	return &CachedOracle{Next: next, Cache: cache, TTL: ttl}
}

func (c *CachedOracle) Invoke(ctx context.Context, model string, payload any) (json.RawMessage, bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return c.Next.Invoke(ctx, model, payload)
	}
	key := CacheKey(model, raw)

	if cached, hit, err := c.Cache.Get(ctx, key); err != nil {
		slog.Warn("[OracleCache] Lookup failed, calling model",
			slog.String("key", key),
			slog.String("error", err.Error()))
	} else if hit {
		slog.Debug("[OracleCache] Hit", slog.String("key", key))
		return json.RawMessage(cached), true, nil
	}

	body, ok, err := c.Next.Invoke(ctx, model, payload)
	if err != nil || !ok {
		return body, ok, err
	}

	if err := c.Cache.Set(ctx, key, body, c.TTL); err != nil {
		slog.Warn("[OracleCache] Store failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return body, true, nil
}

func CacheKey(model string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return ORACLE_CACHE_PREFIX + ":" + model + ":" + hex.EncodeToString(sum[:])
}
