package handler

import (
	"coursecart/internal/currency"
	"coursecart/internal/dto"
	"coursecart/internal/middleware"
	"coursecart/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.ListOrders(ctx, middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}

	resp := make([]dto.Order, 0, len(orders))
	for _, order := range orders {
		o := dto.Order{
			ID:         order.ID,
			Status:     order.Status.String(),
			TotalCents: order.TotalCents,
			Currency:   order.Currency,
			Total:      currency.MustFormat(order.TotalCents, order.Currency, currency.LocaleFor(order.Currency)),
			ReceiptURL: order.ReceiptURL,
			CreatedAt:  order.CreatedAt,
			Items:      make([]dto.OrderItem, 0, len(order.Items)),
		}
		for _, item := range order.Items {
			o.Items = append(o.Items, dto.OrderItem{
				CourseID:       item.CourseID,
				CourseName:     item.CourseName,
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
				Currency:       item.UnitCurrency,
				DeliveryURL:    item.DeliveryURL,
			})
		}
		resp = append(resp, o)
	}

	return c.JSON(http.StatusOK, resp)
}
