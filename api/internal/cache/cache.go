package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sani-bot/api/internal/llm"
	"sani-bot/api/internal/metrics"
)

var ErrMiss = errors.New("cache: miss")

// Cache хранит строки в Redis с TTL под общим префиксом.
type Cache struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func New(rdb redis.Cmdable, prefix string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (c *Cache) Set(ctx context.Context, key, value string) error {
	return c.rdb.Set(ctx, c.prefix+key, value, c.ttl).Err()
}

// Key: sha256 от частей, разделённых '|'.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Generator кэширует ответы обёрнутого движка. Ошибки Redis не ломают вызов:
// пишем warning и идём в движок.
type Generator struct {
	next  llm.Engine
	cache *Cache
	log   *zap.Logger
}

func Wrap(next llm.Engine, c *Cache, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{next: next, cache: c, log: log}
}

func (g *Generator) Name() string     { return g.next.Name() }
func (g *Generator) GetModel() string { return g.next.GetModel() }

func (g *Generator) Generate(ctx context.Context, msgs []llm.Message, p llm.Params) (string, error) {
	key, err := requestKey(g.next.Name(), g.next.GetModel(), msgs, p)
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		g.log.Warn("cache key failed", zap.Error(err))
		return g.next.Generate(ctx, msgs, p)
	}

	v, err := g.cache.Get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return v, nil
	case errors.Is(err, ErrMiss):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		g.log.Warn("cache get failed", zap.Error(err))
	}

	out, err := g.next.Generate(ctx, msgs, p)
	if err != nil {
		return "", err
	}
	if err := g.cache.Set(ctx, key, out); err != nil {
		g.log.Warn("cache set failed", zap.Error(err))
	}
	return out, nil
}

// requestKey падает только на схеме с несериализуемыми значениями; тогда кэш пропускаем.
func requestKey(engine, model string, msgs []llm.Message, p llm.Params) (string, error) {
	type keyed struct {
		Msgs   []llm.Message `json:"m"`
		Params llm.Params    `json:"p"`
	}
	b, err := json.Marshal(keyed{Msgs: msgs, Params: p})
	if err != nil {
		return "", fmt.Errorf("request key: %w", err)
	}
	return Key(engine, model, string(b)), nil
}
