package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID              string  `gorm:"primaryKey;size:36;not null"`
	Slug            string  `gorm:"size:128;uniqueIndex;not null"`
	Name            string  `gorm:"size:255;not null"`
	Description     *string `gorm:"type:text"`
	PriceCents      int64   `gorm:"not null"`
	Currency        string  `gorm:"size:8;not null"`
	IsActive        bool    `gorm:"not null;default:true"`
	DeliveryURL     *string `gorm:"size:512"`
	ThumbnailURL    *string `gorm:"size:512"`
	StripeProductID *string `gorm:"size:255"`
	StripePriceID   *string `gorm:"size:255"` // required for checkout
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Cart struct {
	ID     string     `gorm:"primaryKey;size:36;not null"`
	UserID string     `gorm:"size:64;index;not null"`
	Status CartStatus `gorm:"size:16;index;not null"`
	// ActiveKey holds UserID while the cart is active and NULL afterwards,
	// so the unique index allows one active cart per user.
	ActiveKey               *string `gorm:"size:64;uniqueIndex"`
	StripeCheckoutSessionID *string `gorm:"size:255;index"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

type CartItem struct {
	ID       string `gorm:"primaryKey;size:36;not null"`
	CartID   string `gorm:"size:36;not null;uniqueIndex:idx_cart_items_cart_course"`
	CourseID string `gorm:"size:36;not null;uniqueIndex:idx_cart_items_cart_course"`
	Quantity int32  `gorm:"not null"`
	// price snapshot taken when the item was first added
	UnitPriceCents *int64
	UnitCurrency   *string `gorm:"size:8"`
	Course         *Course `gorm:"foreignKey:CourseID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Order struct {
	ID                      string      `gorm:"primaryKey;size:36;not null"`
	UserID                  *string     `gorm:"size:64;index"`
	Email                   string      `gorm:"size:255;not null"`
	Status                  OrderStatus `gorm:"size:16;index;not null"`
	TotalCents              int64       `gorm:"not null"`
	Currency                string      `gorm:"size:8;not null"`
	StripeCheckoutSessionID string      `gorm:"size:255;uniqueIndex;not null"` // idempotency key
	StripePaymentIntentID   *string     `gorm:"size:255"`
	ReceiptURL              *string     `gorm:"size:1024"`
	Items                   []OrderItem `gorm:"foreignKey:OrderID"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

type OrderItem struct {
	ID             string  `gorm:"primaryKey;size:36;not null"`
	OrderID        string  `gorm:"size:36;index;not null"`
	CourseID       string  `gorm:"size:36;index;not null"`
	CourseName     string  `gorm:"size:255;not null"`
	Quantity       int32   `gorm:"not null"`
	UnitPriceCents int64   `gorm:"not null"`
	UnitCurrency   string  `gorm:"size:8;not null"`
	DeliveryURL    *string `gorm:"size:512"`
	CreatedAt      time.Time
}

type Profile struct {
	ID        string  `gorm:"primaryKey;size:64;not null"` // auth subject
	Email     *string `gorm:"size:255;index"`
	Role      Role    `gorm:"size:16;not null;default:user"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

func (c *Course) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	i.ID = ensureID(i.ID)
	return nil
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	o.ID = ensureID(o.ID)
	return nil
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	i.ID = ensureID(i.ID)
	return nil
}

func ensureID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// AllModels lists every table owned by the service, in migration order.
func AllModels() []any {
	return []any{
		&Course{},
		&Profile{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&WebhookEvent{},
	}
}
