package dto

import (
	"coursecart/internal/model"
	"time"
)

type CartItemRequest struct {
	CourseID string   `json:"courseId"`
	Quantity *float64 `json:"quantity,omitempty"`
}

// NormalizedQuantity applies max(1, floor(q)); a missing quantity means 1.
// Values above model.MaxItemQuantity are clamped to it; use QuantityTooLarge
// to reject them first.
func (r *CartItemRequest) NormalizedQuantity() int {
	if r.Quantity == nil || !(*r.Quantity >= 1) {
		return 1
	}
	if r.QuantityTooLarge() {
		return model.MaxItemQuantity
	}
	return int(*r.Quantity)
}

func (r *CartItemRequest) QuantityTooLarge() bool {
	return r.Quantity != nil && *r.Quantity >= model.MaxItemQuantity+1
}

type AddItemResponse struct {
	CartID     *string `json:"cartId"`
	ItemCount  int64   `json:"itemCount"`
	TotalCents int64   `json:"totalCents"`
	Quantity   int32   `json:"quantity"`
}

type CartSummaryResponse struct {
	CartID     *string `json:"cartId"`
	ItemCount  int64   `json:"itemCount"`
	TotalCents int64   `json:"totalCents"`
}

type CartLine struct {
	CourseID       string  `json:"courseId"`
	Slug           string  `json:"slug,omitempty"`
	Name           string  `json:"name,omitempty"`
	ThumbnailURL   *string `json:"thumbnailUrl,omitempty"`
	Quantity       int32   `json:"quantity"`
	UnitPriceCents int64   `json:"unitPriceCents"`
	Currency       string  `json:"currency"`
	LineTotalCents int64   `json:"lineTotalCents"`
}

type CartDetailResponse struct {
	CartID     *string    `json:"cartId"`
	ItemCount  int64      `json:"itemCount"`
	TotalCents int64      `json:"totalCents"`
	Currency   *string    `json:"currency"`
	Items      []CartLine `json:"items"`
}

type CheckoutSessionResponse struct {
	URL string `json:"url"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type Course struct {
	ID           string  `json:"id"`
	Slug         string  `json:"slug"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	PriceCents   int64   `json:"priceCents"`
	Currency     string  `json:"currency"`
	Price        string  `json:"price"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`
}

type CourseContentResponse struct {
	Course      Course  `json:"course"`
	DeliveryURL *string `json:"deliveryUrl"`
}

type OrderItem struct {
	CourseID       string  `json:"courseId"`
	CourseName     string  `json:"courseName"`
	Quantity       int32   `json:"quantity"`
	UnitPriceCents int64   `json:"unitPriceCents"`
	Currency       string  `json:"currency"`
	DeliveryURL    *string `json:"deliveryUrl,omitempty"`
}

type Order struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	TotalCents int64       `json:"totalCents"`
	Currency   string      `json:"currency"`
	Total      string      `json:"total"`
	ReceiptURL *string     `json:"receiptUrl,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	Items      []OrderItem `json:"items"`
}

type Profile struct {
	ID        string     `json:"id"`
	Email     *string    `json:"email"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
}

type UpdateRoleRequest struct {
	UserID string     `json:"userId"`
	Role   model.Role `json:"role"`
}

type DeleteUserRequest struct {
	UserID string `json:"userId"`
}

type PromoteRequest struct {
	Code  string `json:"code"`
	Email string `json:"email"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
