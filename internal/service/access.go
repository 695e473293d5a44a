package service

import (
	"context"
	"coursecart/internal/model"
	"coursecart/internal/repository"
	"errors"
	"fmt"
)

// PurchasedCourse is a course as the buyer bought it. DeliveryURL comes from
// the order item snapshot, not the live course.
type PurchasedCourse struct {
	Course      *model.Course
	DeliveryURL *string
}

type AccessService interface {
	// HasCourseAccess is true only once a paid or fulfilled order holds the course.
	// Carts never grant access.
	HasCourseAccess(ctx context.Context, userID, courseID string) (bool, error)
	// PurchasedContent resolves the delivery reference of a bought course,
	// including courses deactivated after the purchase.
	PurchasedContent(ctx context.Context, userID, slug string) (*PurchasedCourse, error)
}

type accessServiceImpl struct {
	courseRepo repository.CourseRepository
	orderRepo  repository.OrderRepository
}

func NewAccessService(courseRepo repository.CourseRepository, orderRepo repository.OrderRepository) AccessService {
	return &accessServiceImpl{
		courseRepo: courseRepo,
		orderRepo:  orderRepo,
	}
}

func (s *accessServiceImpl) HasCourseAccess(ctx context.Context, userID, courseID string) (bool, error) {
	if userID == "" || courseID == "" {
		return false, nil
	}

	ok, err := s.orderRepo.HasCourseAccess(ctx, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("check course access: %w", err)
	}
	return ok, nil
}

func (s *accessServiceImpl) PurchasedContent(ctx context.Context, userID, slug string) (*PurchasedCourse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrValidation)
	}

	course, err := s.courseRepo.FindBySlug(ctx, slug)
	if errors.Is(err, repository.ErrCourseNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find course by slug: %w", err)
	}

	item, err := s.orderRepo.FindPurchasedItem(ctx, userID, course.ID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrNotPurchased
	}
	if err != nil {
		return nil, fmt.Errorf("find purchased item: %w", err)
	}

	return &PurchasedCourse{
		Course:      course,
		DeliveryURL: item.DeliveryURL,
	}, nil
}
