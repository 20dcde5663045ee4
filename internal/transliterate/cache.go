package transliterate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type suggestionList []string

func (s suggestionList) MarshalBinary() ([]byte, error) {
	return json.Marshal([]string(s))
}

func (s *suggestionList) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, (*[]string)(s))
}

// RedisCache keeps suggestions under translit:<word>.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(word string) string {
	return "translit:" + word
}

func (c *RedisCache) Get(ctx context.Context, word string) ([]string, bool) {
	var list suggestionList
	err := c.rdb.Get(ctx, cacheKey(word)).Scan(&list)
	if err == nil {
		return list, true
	}
	if err != redis.Nil {
		c.logger.Warn("transliteration cache read failed", zap.Error(err))
	}
	return nil, false
}

func (c *RedisCache) Set(ctx context.Context, word string, suggestions []string) {
	if err := c.rdb.Set(ctx, cacheKey(word), suggestionList(suggestions), c.ttl).Err(); err != nil {
		c.logger.Warn("transliteration cache write failed", zap.Error(err))
	}
}
