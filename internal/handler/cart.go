package handler

import (
	"coursecart/internal/dto"
	"coursecart/internal/middleware"
	"coursecart/internal/model"
	"coursecart/internal/service"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.CourseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "courseId is required")
	}
	if req.QuantityTooLarge() {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("quantity must be at most %d", model.MaxItemQuantity))
	}

	result, err := h.cartService.AddItem(ctx, middleware.UserID(c), req.CourseID, req.NormalizedQuantity())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.AddItemResponse{
		CartID:     result.CartID,
		ItemCount:  result.ItemCount,
		TotalCents: result.TotalCents,
		Quantity:   result.Quantity,
	})
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.CourseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "courseId is required")
	}

	summary, err := h.cartService.RemoveItem(ctx, middleware.UserID(c), req.CourseID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.CartSummaryResponse{
		CartID:     summary.CartID,
		ItemCount:  summary.ItemCount,
		TotalCents: summary.TotalCents,
	})
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	detail, err := h.cartService.GetDetail(ctx, middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, toCartDetail(detail))
}

func toCartDetail(detail *model.CartDetail) dto.CartDetailResponse {
	resp := dto.CartDetailResponse{
		CartID:     detail.CartID,
		ItemCount:  detail.ItemCount,
		TotalCents: detail.TotalCents,
		Currency:   detail.Currency,
		Items:      make([]dto.CartLine, 0, len(detail.Items)),
	}
	for _, item := range detail.Items {
		line := dto.CartLine{
			CourseID:       item.CourseID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPrice(),
			Currency:       item.Currency(),
			LineTotalCents: int64(item.Quantity) * item.UnitPrice(),
		}
		if item.Course != nil {
			line.Slug = item.Course.Slug
			line.Name = item.Course.Name
			line.ThumbnailURL = item.Course.ThumbnailURL
		}
		resp.Items = append(resp.Items, line)
	}
	return resp
}
