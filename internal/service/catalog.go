package service

import (
	"context"
	"coursecart/internal/cache"
	"coursecart/internal/metrics"
	"coursecart/internal/model"
	"coursecart/internal/repository"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

type CatalogService interface {
	ListActive(ctx context.Context) ([]*model.Course, error)
	GetBySlug(ctx context.Context, slug string) (*model.Course, error)
}

type catalogServiceImpl struct {
	courseRepo repository.CourseRepository
	cache      cache.CourseCache
	sfg        singleflight.Group
	log        *slog.Logger
	metrics    *metrics.Metrics
}

func NewCatalogService(
	courseRepo repository.CourseRepository,
	courseCache cache.CourseCache,
	log *slog.Logger,
	m *metrics.Metrics,
) CatalogService {
	return &catalogServiceImpl{
		courseRepo: courseRepo,
		cache:      courseCache,
		log:        log,
		metrics:    m,
	}
}

func (s *catalogServiceImpl) ListActive(ctx context.Context) ([]*model.Course, error) {
	v, err, _ := s.sfg.Do("courses:active", func() (interface{}, error) {
		courses, err := s.cache.GetActive(ctx)
		if err == nil {
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return courses, nil
		}
		s.cacheMiss(ctx, err)

		courses, err = s.courseRepo.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active courses: %w", err)
		}

		if err := s.cache.SetActive(ctx, courses); err != nil {
			s.log.WarnContext(ctx, "cache set active courses", "error", err)
		}
		return courses, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]*model.Course), nil
}

// GetBySlug returns ErrCourseNotFound for unknown and inactive courses alike.
func (s *catalogServiceImpl) GetBySlug(ctx context.Context, slug string) (*model.Course, error) {
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrValidation)
	}

	v, err, _ := s.sfg.Do("course:"+slug, func() (interface{}, error) {
		course, err := s.cache.GetCourse(ctx, slug)
		if err == nil {
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return course, nil
		}
		s.cacheMiss(ctx, err)

		course, err = s.courseRepo.FindBySlug(ctx, slug)
		if errors.Is(err, repository.ErrCourseNotFound) {
			return nil, ErrCourseNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("find course by slug: %w", err)
		}

		if err := s.cache.SetCourse(ctx, course); err != nil {
			s.log.WarnContext(ctx, "cache set course", "slug", slug, "error", err)
		}
		return course, nil
	})
	if err != nil {
		return nil, err
	}

	course := v.(*model.Course)
	if !course.IsActive {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func (s *catalogServiceImpl) cacheMiss(ctx context.Context, err error) {
	if errors.Is(err, cache.ErrCacheMiss) {
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return
	}
	s.metrics.CacheLookups.WithLabelValues("error").Inc()
	s.log.WarnContext(ctx, "course cache unavailable", "error", err)
}
