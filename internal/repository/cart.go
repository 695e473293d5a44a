package repository

import (
	"context"
	"coursecart/internal/model"
	"errors"
	"time"

	"gorm.io/gorm"
)

type CartRepository interface {
	FindActiveByUser(ctx context.Context, tx *gorm.DB, userID string) (*model.Cart, error)
	FindByID(ctx context.Context, tx *gorm.DB, cartID string) (*model.Cart, error)
	Create(ctx context.Context, tx *gorm.DB, cart *model.Cart) error
	// Transition moves the cart from one status to the next, failing with
	// ErrCartNotActive when the cart is no longer in the expected status.
	Transition(ctx context.Context, tx *gorm.DB, cartID string, from, to model.CartStatus, sessionID string) error
	// Touch re-asserts the cart is still active inside tx and bumps updated_at.
	Touch(ctx context.Context, tx *gorm.DB, cartID string) error

	FindItem(ctx context.Context, tx *gorm.DB, cartID, courseID string) (*model.CartItem, error)
	CreateItem(ctx context.Context, tx *gorm.DB, item *model.CartItem) error
	IncrementItem(ctx context.Context, tx *gorm.DB, itemID string, delta int32) error
	DeleteItem(ctx context.Context, tx *gorm.DB, cartID, courseID string) error
	ListItems(ctx context.Context, tx *gorm.DB, cartID string) ([]*model.CartItem, error)
	ClearItems(ctx context.Context, tx *gorm.DB, cartID string) error
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{
		db: db,
	}
}

func (r *cartRepoImpl) FindActiveByUser(ctx context.Context, tx *gorm.DB, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := conn(r.db, tx).WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.CartStatusActive).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}

	return &cart, nil
}

func (r *cartRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, cartID string) (*model.Cart, error) {
	var cart model.Cart
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ?", cartID).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}

	return &cart, nil
}

func (r *cartRepoImpl) Create(ctx context.Context, tx *gorm.DB, cart *model.Cart) error {
	if cart.Status == "" {
		cart.Status = model.CartStatusActive
	}
	if cart.Status == model.CartStatusActive {
		key := cart.UserID
		cart.ActiveKey = &key
	}

	err := conn(r.db, tx).WithContext(ctx).Create(cart).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateCart
	}
	return err
}

func (r *cartRepoImpl) Transition(ctx context.Context, tx *gorm.DB, cartID string, from, to model.CartStatus, sessionID string) error {
	if !from.CanTransitionTo(to) {
		return ErrCartNotActive
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if to != model.CartStatusActive {
		updates["active_key"] = nil
	}
	if sessionID != "" {
		updates["stripe_checkout_session_id"] = sessionID
	}

	result := conn(r.db, tx).WithContext(ctx).Model(&model.Cart{}).
		Where("id = ? AND status = ?", cartID, from).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCartNotActive
	}
	return nil
}

func (r *cartRepoImpl) Touch(ctx context.Context, tx *gorm.DB, cartID string) error {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.Cart{}).
		Where("id = ? AND status = ?", cartID, model.CartStatusActive).
		Update("updated_at", time.Now())

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCartNotActive
	}
	return nil
}

func (r *cartRepoImpl) FindItem(ctx context.Context, tx *gorm.DB, cartID, courseID string) (*model.CartItem, error) {
	var item model.CartItem
	err := conn(r.db, tx).WithContext(ctx).
		Where("cart_id = ? AND course_id = ?", cartID, courseID).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *cartRepoImpl) CreateItem(ctx context.Context, tx *gorm.DB, item *model.CartItem) error {
	err := conn(r.db, tx).WithContext(ctx).Omit("Course").Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateItem
	}
	return err
}

// IncrementItem adds delta to the item quantity and fails with
// ErrQuantityLimit when the result would exceed model.MaxItemQuantity.
func (r *cartRepoImpl) IncrementItem(ctx context.Context, tx *gorm.DB, itemID string, delta int32) error {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ? AND quantity + ? <= ?", itemID, delta, model.MaxItemQuantity).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrQuantityLimit
	}
	return nil
}

func (r *cartRepoImpl) DeleteItem(ctx context.Context, tx *gorm.DB, cartID, courseID string) error {
	return conn(r.db, tx).WithContext(ctx).
		Where("cart_id = ? AND course_id = ?", cartID, courseID).
		Delete(&model.CartItem{}).Error
}

func (r *cartRepoImpl) ListItems(ctx context.Context, tx *gorm.DB, cartID string) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := conn(r.db, tx).WithContext(ctx).
		Preload("Course").
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *cartRepoImpl) ClearItems(ctx context.Context, tx *gorm.DB, cartID string) error {
	return conn(r.db, tx).WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&model.CartItem{}).Error
}
