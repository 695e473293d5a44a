package model

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusLocked    CartStatus = "locked"    // submitted to Stripe, awaiting payment
	CartStatusConverted CartStatus = "converted" // order materialized, items purged
)

// CanTransitionTo reports whether a cart may move from s to next.
// active -> locked -> converted, nothing else.
func (s CartStatus) CanTransitionTo(next CartStatus) bool {
	switch s {
	case CartStatusActive:
		return next == CartStatusLocked
	case CartStatusLocked:
		return next == CartStatusConverted
	case CartStatusConverted:
		return false
	default:
		return false
	}
}

func (s CartStatus) String() string {
	return string(s)
}

type OrderStatus string

const (
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
)

// AccessStatuses are the order statuses that unlock course content.
var AccessStatuses = []OrderStatus{OrderStatusPaid, OrderStatusFulfilled}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPaid:
		return next == OrderStatusFulfilled
	case OrderStatusFulfilled:
		return false
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	return string(s)
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}
