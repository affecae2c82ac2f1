package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devricklin/chatguard/internal/biz/repo"
)

const redisCountPrefix = "chatguard/count/"

func periodBucket(name, val, period string, now time.Time) string {
	switch period {
	case repo.PeriodDay:
		return fmt.Sprintf("%s/%s/%s", name, val, now.UTC().Format(time.DateOnly))
	default:
		return fmt.Sprintf("%s/%s", name, val)
	}
}

// MemCountStore keeps counters in process memory
type MemCountStore struct {
	mu     sync.Mutex
	counts map[string]int
	now    func() time.Time
}

// NewMemCountStore creates an empty in-memory count store
func NewMemCountStore() *MemCountStore {
	return &MemCountStore{counts: make(map[string]int), now: time.Now}
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[periodBucket(name, val, period, s.now())], nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, p := range []string{repo.PeriodTotal, repo.PeriodDay} {
		s.counts[periodBucket(name, val, p, now)]++
	}
	return nil
}

// RedisCountStore keeps counters in Redis so they survive restarts and
// are shared between instances
type RedisCountStore struct {
	Client *redis.Client
	now    func() time.Time
}

// NewRedisCountStore connects to redisURL and checks the connection
func NewRedisCountStore(ctx context.Context, redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCountStore{Client: rdb, now: time.Now}, nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	key := redisCountPrefix + periodBucket(name, val, period, s.now())
	c, err := s.Client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	now := s.now()

	// both buckets in a single round-trip
	multi := s.Client.Pipeline()

	key := redisCountPrefix + periodBucket(name, val, repo.PeriodDay, now)
	multi.Incr(ctx, key)
	multi.Expire(ctx, key, 48*time.Hour)

	key = redisCountPrefix + periodBucket(name, val, repo.PeriodTotal, now)
	multi.Incr(ctx, key)

	_, err := multi.Exec(ctx)
	return err
}

// Close closes the Redis client
func (s *RedisCountStore) Close() error {
	return s.Client.Close()
}
