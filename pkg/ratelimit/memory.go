package ratelimit

import (
	"context"
	"sync"
	"time"

	extratelimit "github.com/vnmchuo/ratelimiter"
	"golang.org/x/time/rate"
)

// MemoryStore is a token bucket per key that refills limit tokens per window.
type MemoryStore struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	every    rate.Limit
	interval time.Duration
	burst    int
}

var _ extratelimit.Limiter = (*MemoryStore)(nil)

func NewMemoryStore(limit int, window time.Duration) *MemoryStore {
	if limit < 1 {
		limit = 1
	}
	interval := window / time.Duration(limit)
	return &MemoryStore{
		buckets:  make(map[string]*rate.Limiter),
		every:    rate.Every(interval),
		interval: interval,
		burst:    limit,
	}
}

func (s *MemoryStore) bucket(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		b = rate.NewLimiter(s.every, s.burst)
		s.buckets[key] = b
	}
	return b
}

// result reports the bucket state at now. ResetAfter is the time until the
// bucket is full again.
func (s *MemoryStore) result(b *rate.Limiter, now time.Time, allowed bool) *extratelimit.Result {
	tokens := b.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}
	missing := float64(s.burst) - tokens
	return &extratelimit.Result{
		Allowed:    allowed,
		Remaining:  int64(tokens),
		Limit:      s.burst,
		ResetAfter: time.Duration(missing * float64(s.interval)),
	}
}

func (s *MemoryStore) AllowN(ctx context.Context, key string, n int) (*extratelimit.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := s.bucket(key)
	now := time.Now()
	allowed := b.AllowN(now, n)
	return s.result(b, now, allowed), nil
}

func (s *MemoryStore) Allow(ctx context.Context, key string) (*extratelimit.Result, error) {
	return s.AllowN(ctx, key, 1)
}

func (s *MemoryStore) Status(ctx context.Context, key string) (*extratelimit.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := s.bucket(key)
	now := time.Now()
	return s.result(b, now, b.TokensAt(now) >= 1), nil
}
