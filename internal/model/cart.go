package model

// MaxItemQuantity bounds the quantity of a single course in a cart.
const MaxItemQuantity = 100

type CartSummary struct {
	CartID     *string `json:"cartId"`
	ItemCount  int64   `json:"itemCount"`
	TotalCents int64   `json:"totalCents"`
	Currency   *string `json:"currency"`
}

type CartDetail struct {
	CartSummary
	Items []*CartItem `json:"items"`
}

// UnitPrice returns the snapshot price, falling back to the live course
// price only when the snapshot is missing.
func (i *CartItem) UnitPrice() int64 {
	if i.UnitPriceCents != nil {
		return *i.UnitPriceCents
	}
	if i.Course != nil {
		return i.Course.PriceCents
	}
	return 0
}

func (i *CartItem) Currency() string {
	if i.UnitCurrency != nil && *i.UnitCurrency != "" {
		return *i.UnitCurrency
	}
	if i.Course != nil {
		return i.Course.Currency
	}
	return ""
}

// Summarize computes item count and total from the price snapshots.
func Summarize(cartID string, items []*CartItem) CartSummary {
	summary := CartSummary{CartID: &cartID}
	for _, item := range items {
		summary.ItemCount += int64(item.Quantity)
		if item.UnitPriceCents != nil {
			summary.TotalCents += int64(item.Quantity) * *item.UnitPriceCents
		}
	}
	if len(items) > 0 {
		if c := items[0].Currency(); c != "" {
			summary.Currency = &c
		}
	}
	return summary
}

// AddItemResult is the summary after an add plus the item's new quantity.
type AddItemResult struct {
	CartSummary
	Quantity int32 `json:"quantity"`
}
