package cache

import (
	"context"
	"coursecart/internal/model"
	"errors"
)

type CourseCache interface {
	GetCourse(ctx context.Context, slug string) (*model.Course, error)
	SetCourse(ctx context.Context, course *model.Course) error
	GetActive(ctx context.Context) ([]*model.Course, error)
	SetActive(ctx context.Context, courses []*model.Course) error
	Invalidate(ctx context.Context, slugs ...string) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache always misses. Used when no Redis address is configured.
type NopCache struct{}

func (NopCache) GetCourse(context.Context, string) (*model.Course, error) { return nil, ErrCacheMiss }
func (NopCache) SetCourse(context.Context, *model.Course) error           { return nil }
func (NopCache) GetActive(context.Context) ([]*model.Course, error)       { return nil, ErrCacheMiss }
func (NopCache) SetActive(context.Context, []*model.Course) error         { return nil }
func (NopCache) Invalidate(context.Context, ...string) error              { return nil }
