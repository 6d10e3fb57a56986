package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQuotaCounter tracks the cloud mode's per-day remote
// project-creation quota across process restarts, keyed by UTC date.
type RedisQuotaCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisQuotaCounter builds a counter backed by an existing Redis
// client.
func NewRedisQuotaCounter(client *redis.Client, prefix string) *RedisQuotaCounter {
	return &RedisQuotaCounter{client: client, prefix: prefix}
}

func (q *RedisQuotaCounter) Increment(ctx context.Context) (int64, error) {
	key := fmt.Sprintf("%s:quota:%s", q.prefix, time.Now().UTC().Format("2006-01-02"))
	count, err := q.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	q.client.Expire(ctx, key, 48*time.Hour)
	return count, nil
}

// InProcessQuotaCounter is the offline-friendly fallback used when no
// Redis is configured, mirroring C3's offline LLM marker pattern: the
// quota simply resets whenever the process restarts.
type InProcessQuotaCounter struct {
	mu    sync.Mutex
	day   string
	count int64
}

// NewInProcessQuotaCounter builds a process-local counter.
func NewInProcessQuotaCounter() *InProcessQuotaCounter {
	return &InProcessQuotaCounter{}
}

func (q *InProcessQuotaCounter) Increment(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	today := time.Now().UTC().Format("2006-01-02")
	if today != q.day {
		q.day = today
		q.count = 0
	}
	q.count++
	return q.count, nil
}
