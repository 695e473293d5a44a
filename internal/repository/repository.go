package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartNotActive     = errors.New("cart is not active")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrDuplicateSession  = errors.New("order already exists for checkout session")
	ErrDuplicateCart     = errors.New("user already has an active cart")
	ErrDuplicateItem     = errors.New("course already in cart")
	ErrQuantityLimit     = errors.New("cart item quantity limit reached")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// conn picks the caller's transaction when there is one.
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
