package repository

import (
	"context"
	"coursecart/internal/model"
	"errors"
	"time"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*model.Order, error)
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	GetOrderItems(ctx context.Context, tx *gorm.DB, orderID string) ([]*model.OrderItem, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)
	Transition(ctx context.Context, tx *gorm.DB, orderID string, from, to model.OrderStatus) error
	// HasCourseAccess reports whether userID owns an access-granting order containing courseID.
	HasCourseAccess(ctx context.Context, userID, courseID string) (bool, error)
	// FindPurchasedItem returns the newest access-granting order item of userID for courseID.
	FindPurchasedItem(ctx context.Context, userID, courseID string) (*model.OrderItem, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

// Create inserts the order without its items. A second order for the same
// checkout session fails with ErrDuplicateSession.
func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	err := conn(r.db, tx).WithContext(ctx).Omit("Items").Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSession
	}
	return err
}

func (r *orderRepoImpl) FindBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*model.Order, error) {
	var order model.Order
	err := conn(r.db, tx).WithContext(ctx).
		Where("stripe_checkout_session_id = ?", sessionID).
		First(&order).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn(r.db, tx).WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) GetOrderItems(ctx context.Context, tx *gorm.DB, orderID string) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := conn(r.db, tx).WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *orderRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

// Transition moves the order from one status to the next. It returns
// ErrInvalidTransition for moves outside the table and ErrOrderNotFound when
// no order is in the from status.
func (r *orderRepoImpl) Transition(ctx context.Context, tx *gorm.DB, orderID string, from, to model.OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return ErrInvalidTransition
	}

	result := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepoImpl) HasCourseAccess(ctx context.Context, userID, courseID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ?", userID).
		Where("order_items.course_id = ?", courseID).
		Where("orders.status IN ?", model.AccessStatuses).
		Count(&count).Error

	return count > 0, err
}

func (r *orderRepoImpl) FindPurchasedItem(ctx context.Context, userID, courseID string) (*model.OrderItem, error) {
	var item model.OrderItem
	err := r.db.WithContext(ctx).
		Select("order_items.*").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ?", userID).
		Where("order_items.course_id = ?", courseID).
		Where("orders.status IN ?", model.AccessStatuses).
		Order("orders.created_at DESC").
		Take(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}
