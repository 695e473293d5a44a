package model

func (i *OrderItem) LineTotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// SubtotalCents sums the line snapshots; TotalCents may differ when Stripe applied a discount.
func (o *Order) SubtotalCents() int64 {
	var total int64
	for i := range o.Items {
		total += o.Items[i].LineTotalCents()
	}
	return total
}

func (o *Order) HasCourse(courseID string) bool {
	for i := range o.Items {
		if o.Items[i].CourseID == courseID {
			return true
		}
	}
	return false
}
