package service

import "errors"

var (
	ErrUnauthenticated           = errors.New("unauthenticated")
	ErrValidation                = errors.New("validation failed")
	ErrCourseNotFound            = errors.New("course not found or inactive")
	ErrEmptyCart                 = errors.New("cart is empty")
	ErrMissingPriceConfiguration = errors.New("course has no stripe price configured")
	ErrCartNotActive             = errors.New("cart is not active")
	ErrForbidden                 = errors.New("forbidden")
	ErrNotPurchased              = errors.New("course not purchased")
	ErrUpstreamProvider          = errors.New("upstream provider error")
	ErrSignatureInvalid          = errors.New("invalid webhook signature")
)
