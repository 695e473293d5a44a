package repository

import (
	"context"
	"coursecart/internal/model"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, courseID string) (*model.Course, error)
	FindBySlug(ctx context.Context, slug string) (*model.Course, error)
	ListActive(ctx context.Context) ([]*model.Course, error)
}

type courseRepoImpl struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepoImpl{
		db: db,
	}
}

func (r *courseRepoImpl) Seed(ctx context.Context) error {
	courses := []model.Course{
		{
			Slug:        "starter-strong",
			Name:        "Starter Strong",
			Description: ptr("Base de tecnica: sentadilla, press y movilidad consciente."),
			PriceCents:  4900,
			Currency:    "USD",
			IsActive:    true,
			DeliveryURL: ptr("/courses/starter-strong/content"),
		},
		{
			Slug:        "elite-pro",
			Name:        "Elite Pro",
			Description: ptr("Periodizacion avanzada, biometria y nutricion de alto rendimiento."),
			PriceCents:  12900,
			Currency:    "USD",
			IsActive:    true,
			DeliveryURL: ptr("/courses/elite-pro/content"),
		},
		{
			Slug:        "team-power",
			Name:        "Team Power",
			Description: ptr("Rutinas en grupo con retos y scoreboard."),
			PriceCents:  7900,
			Currency:    "USD",
			IsActive:    true,
			DeliveryURL: ptr("/courses/team-power/content"),
		},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&courses).Error
}

func (r *courseRepoImpl) FindByID(ctx context.Context, courseID string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("id = ?", courseID).
		First(&course).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	return &course, nil
}

func (r *courseRepoImpl) FindBySlug(ctx context.Context, slug string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&course).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	return &course, nil
}

func (r *courseRepoImpl) ListActive(ctx context.Context) ([]*model.Course, error) {
	var courses []*model.Course
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price_cents ASC").
		Find(&courses).
		Error

	if err != nil {
		return nil, err
	}

	return courses, nil
}

func ptr[T any](v T) *T {
	return &v
}
