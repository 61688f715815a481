// File path: internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyaid/quizmatch/internal/common"
	"github.com/studyaid/quizmatch/internal/question"
)

// ErrMiss is returned when no cached value exists for a key.
var ErrMiss = errors.New("cache miss")

const (
	defaultTTL   = 5 * time.Minute
	keyPrefix    = "quizmatch:question:"
	coursePrefix = "quizmatch:course-page:"
)

// Cache is a read-through layer in front of the question store. A missing
// or unreachable Redis degrades to straight misses; the cache never makes a
// read path fail.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFromEnv connects to the Redis named by QUIZ_REDIS_ADDR. An empty
// address disables caching entirely.
func NewFromEnv(ctx context.Context) *Cache {
	addr := strings.TrimSpace(os.Getenv("QUIZ_REDIS_ADDR"))
	if addr == "" {
		return nil
	}
	if strings.HasPrefix(addr, "redis://") {
		addr = addr[len("redis://"):]
	}
	ttl := defaultTTL
	if raw := strings.TrimSpace(os.Getenv("QUIZ_REDIS_TTL")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			ttl = parsed
		}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("QUIZ_REDIS_PASSWORD"),
	})
	logger := common.Logger()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Warn("cache: redis unreachable, continuing without cache", "addr", addr, "error", err)
	} else {
		logger.Info("cache: redis connected", "addr", addr, "ttl", ttl)
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// New wraps an existing client, mainly for tests.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil
}

// Question returns the cached record for an id, or ErrMiss.
func (c *Cache) Question(ctx context.Context, id string) (question.StoredQuestion, error) {
	if !c.enabled() {
		return question.StoredQuestion{}, ErrMiss
	}
	raw, err := c.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		return question.StoredQuestion{}, ErrMiss
	}
	var record question.StoredQuestion
	if err := json.Unmarshal(raw, &record); err != nil {
		return question.StoredQuestion{}, ErrMiss
	}
	return record, nil
}

// PutQuestion stores a record. Failures are logged, never surfaced.
func (c *Cache) PutQuestion(ctx context.Context, record question.StoredQuestion) {
	if !c.enabled() || record.ID == "" {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+record.ID, raw, c.ttl).Err(); err != nil {
		common.Logger().Debug("cache: set failed", "id", record.ID, "error", err)
	}
}

// CoursePage returns a cached dedup pool page for a course, or ErrMiss.
func (c *Cache) CoursePage(ctx context.Context, courseID string) ([]question.StoredQuestion, error) {
	if !c.enabled() {
		return nil, ErrMiss
	}
	raw, err := c.rdb.Get(ctx, coursePrefix+courseID).Bytes()
	if err != nil {
		return nil, ErrMiss
	}
	var records []question.StoredQuestion
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, ErrMiss
	}
	return records, nil
}

// PutCoursePage caches a course's dedup pool.
func (c *Cache) PutCoursePage(ctx context.Context, courseID string, records []question.StoredQuestion) {
	if !c.enabled() || courseID == "" {
		return
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, coursePrefix+courseID, raw, c.ttl).Err(); err != nil {
		common.Logger().Debug("cache: set failed", "courseId", courseID, "error", err)
	}
}

// InvalidateCourse drops the cached pool after a write into the course.
func (c *Cache) InvalidateCourse(ctx context.Context, courseID string) {
	if !c.enabled() || courseID == "" {
		return
	}
	if err := c.rdb.Del(ctx, coursePrefix+courseID).Err(); err != nil {
		common.Logger().Debug("cache: invalidate failed", "courseId", courseID, "error", err)
	}
}

// InvalidateQuestion drops a cached record after it is merged or replaced.
func (c *Cache) InvalidateQuestion(ctx context.Context, id string) {
	if !c.enabled() || id == "" {
		return
	}
	if err := c.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		common.Logger().Debug("cache: invalidate failed", "id", id, "error", err)
	}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Close()
}

func (c *Cache) String() string {
	if !c.enabled() {
		return "cache(disabled)"
	}
	return fmt.Sprintf("cache(ttl=%s)", c.ttl)
}
