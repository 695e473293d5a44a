package handler

import (
	"coursecart/internal/dto"
	"coursecart/internal/middleware"
	"coursecart/internal/service"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const stripeSignatureHeader = "Stripe-Signature"

type CheckoutHandler struct {
	checkoutService    service.CheckoutService
	fulfillmentService service.FulfillmentService
}

func NewCheckoutHandler(checkoutService service.CheckoutService, fulfillmentService service.FulfillmentService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService:    checkoutService,
		fulfillmentService: fulfillmentService,
	}
}

func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.checkoutService.CreateCheckoutSession(ctx, middleware.UserID(c), middleware.UserEmail(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.CheckoutSessionResponse{URL: session.URL})
}

// StripeWebhook answers 400 for bad signatures and 500 for persistence
// failures so Stripe redelivers the event.
func (h *CheckoutHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	signature := c.Request().Header.Get(stripeSignatureHeader)
	if signature == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing signature")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}

	if _, err := h.fulfillmentService.HandleWebhook(ctx, body, signature); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.WebhookResponse{Received: true})
}
