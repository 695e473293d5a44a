package cache

import (
	"context"
	"coursecart/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

const activeCoursesKey = "courses:active"

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 10 * time.Minute
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) GetCourse(ctx context.Context, slug string) (*model.Course, error) {
	var course model.Course
	if err := r.get(ctx, courseKey(slug), &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *RedisCache) SetCourse(ctx context.Context, course *model.Course) error {
	return r.set(ctx, courseKey(course.Slug), course)
}

func (r *RedisCache) GetActive(ctx context.Context) ([]*model.Course, error) {
	var courses []*model.Course
	if err := r.get(ctx, activeCoursesKey, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *RedisCache) SetActive(ctx context.Context, courses []*model.Course) error {
	return r.set(ctx, activeCoursesKey, courses)
}

// Invalidate drops the active list and the given course entries.
func (r *RedisCache) Invalidate(ctx context.Context, slugs ...string) error {
	keys := []string{activeCoursesKey}
	for _, slug := range slugs {
		keys = append(keys, courseKey(slug))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) get(ctx context.Context, key string, dst any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/5) + 1))
	if err := r.client.Set(ctx, key, data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func courseKey(slug string) string {
	return fmt.Sprintf("course:%s", slug)
}
