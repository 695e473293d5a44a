package service

import (
	"context"
	"coursecart/internal/model"
	"coursecart/internal/repository"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var errQuantityLimit = fmt.Errorf("%w: at most %d of a course per cart", ErrValidation, model.MaxItemQuantity)

type CartService interface {
	GetOrCreateActiveCart(ctx context.Context, userID string) (*model.Cart, error)
	AddItem(ctx context.Context, userID, courseID string, quantity int) (*model.AddItemResult, error)
	RemoveItem(ctx context.Context, userID, courseID string) (*model.CartSummary, error)
	GetSummary(ctx context.Context, userID string) (*model.CartSummary, error)
	GetDetail(ctx context.Context, userID string) (*model.CartDetail, error)
}

type cartServiceImpl struct {
	db         *gorm.DB
	cartRepo   repository.CartRepository
	courseRepo repository.CourseRepository
}

func NewCartService(
	db *gorm.DB,
	cartRepo repository.CartRepository,
	courseRepo repository.CourseRepository,
) CartService {
	return &cartServiceImpl{
		db:         db,
		cartRepo:   cartRepo,
		courseRepo: courseRepo,
	}
}

func (s *cartServiceImpl) GetOrCreateActiveCart(ctx context.Context, userID string) (*model.Cart, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	cart, err := s.cartRepo.FindActiveByUser(ctx, nil, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, fmt.Errorf("find active cart: %w", err)
	}

	cart = &model.Cart{UserID: userID, Status: model.CartStatusActive}
	err = s.cartRepo.Create(ctx, nil, cart)
	if errors.Is(err, repository.ErrDuplicateCart) {
		// a concurrent request created it first
		cart, err = s.cartRepo.FindActiveByUser(ctx, nil, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	return cart, nil
}

func (s *cartServiceImpl) AddItem(ctx context.Context, userID, courseID string, quantity int) (*model.AddItemResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if courseID == "" {
		return nil, fmt.Errorf("%w: courseId is required", ErrValidation)
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity > model.MaxItemQuantity {
		return nil, fmt.Errorf("%w: quantity must be at most %d", ErrValidation, model.MaxItemQuantity)
	}

	course, err := s.courseRepo.FindByID(ctx, courseID)
	if errors.Is(err, repository.ErrCourseNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find course: %w", err)
	}
	if !course.IsActive {
		return nil, ErrCourseNotFound
	}

	cart, err := s.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.addItem(ctx, cart.ID, course, int32(quantity))
	if errors.Is(err, repository.ErrDuplicateItem) {
		// lost the insert race for this course; the row exists now
		result, err = s.addItem(ctx, cart.ID, course, int32(quantity))
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *cartServiceImpl) addItem(ctx context.Context, cartID string, course *model.Course, quantity int32) (*model.AddItemResult, error) {
	var result model.AddItemResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.cartRepo.Touch(ctx, tx, cartID); err != nil {
			return err
		}

		item, err := s.cartRepo.FindItem(ctx, tx, cartID, course.ID)
		if err != nil {
			return fmt.Errorf("find cart item: %w", err)
		}

		if item != nil {
			if int64(item.Quantity)+int64(quantity) > model.MaxItemQuantity {
				return errQuantityLimit
			}
			err := s.cartRepo.IncrementItem(ctx, tx, item.ID, quantity)
			if errors.Is(err, repository.ErrQuantityLimit) {
				return errQuantityLimit
			}
			if err != nil {
				return fmt.Errorf("increment cart item: %w", err)
			}
			result.Quantity = item.Quantity + quantity
		} else {
			price := course.PriceCents
			currency := course.Currency
			err = s.cartRepo.CreateItem(ctx, tx, &model.CartItem{
				CartID:         cartID,
				CourseID:       course.ID,
				Quantity:       quantity,
				UnitPriceCents: &price,
				UnitCurrency:   &currency,
			})
			if err != nil {
				return err
			}
			result.Quantity = quantity
		}

		items, err := s.cartRepo.ListItems(ctx, tx, cartID)
		if err != nil {
			return fmt.Errorf("list cart items: %w", err)
		}
		result.CartSummary = model.Summarize(cartID, items)
		return nil
	})

	if errors.Is(err, repository.ErrCartNotActive) {
		return nil, ErrCartNotActive
	}
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID, courseID string) (*model.CartSummary, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if courseID == "" {
		return nil, fmt.Errorf("%w: courseId is required", ErrValidation)
	}

	cart, err := s.cartRepo.FindActiveByUser(ctx, nil, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return &model.CartSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active cart: %w", err)
	}

	var summary model.CartSummary
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.cartRepo.Touch(ctx, tx, cart.ID); err != nil {
			return err
		}
		if err := s.cartRepo.DeleteItem(ctx, tx, cart.ID, courseID); err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}

		items, err := s.cartRepo.ListItems(ctx, tx, cart.ID)
		if err != nil {
			return fmt.Errorf("list cart items: %w", err)
		}
		summary = model.Summarize(cart.ID, items)
		return nil
	})

	if errors.Is(err, repository.ErrCartNotActive) {
		return nil, ErrCartNotActive
	}
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

func (s *cartServiceImpl) GetSummary(ctx context.Context, userID string) (*model.CartSummary, error) {
	detail, err := s.GetDetail(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &detail.CartSummary, nil
}

func (s *cartServiceImpl) GetDetail(ctx context.Context, userID string) (*model.CartDetail, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	cart, err := s.cartRepo.FindActiveByUser(ctx, nil, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return &model.CartDetail{Items: []*model.CartItem{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active cart: %w", err)
	}

	items, err := s.cartRepo.ListItems(ctx, nil, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}

	return &model.CartDetail{
		CartSummary: model.Summarize(cart.ID, items),
		Items:       items,
	}, nil
}
