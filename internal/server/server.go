package server

import (
	"context"
	"coursecart/internal/config"
	"coursecart/internal/handler"
	"coursecart/internal/metrics"
	appmiddleware "coursecart/internal/middleware"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Handlers struct {
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Course   *handler.CourseHandler
	Order    *handler.OrderHandler
	Account  *handler.AccountHandler
}

type Server struct {
	echo     *echo.Echo
	handlers Handlers
	auth     *config.Auth
	gatherer prometheus.Gatherer
}

func NewServer(handlers Handlers, auth *config.Auth, log *slog.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				log.ErrorContext(c.Request().Context(), "request", append(attrs, "error", v.Error)...)
				return nil
			}
			log.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(metricsMiddleware(m))

	s := &Server{
		echo:     e,
		handlers: handlers,
		auth:     auth,
		gatherer: gatherer,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.gatherer)))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- stripe webhooks (signature auth, no session) --------
	api.POST("/stripe/webhook", s.handlers.Checkout.StripeWebhook)

	// invite code is the credential here
	api.POST("/admin/promote", s.handlers.Account.Promote)

	auth := appmiddleware.AuthMiddleware(s.auth)
	user := []echo.MiddlewareFunc{auth, appmiddleware.RequireUser()}

	// -------- catalog --------
	api.GET("/courses", s.handlers.Course.ListCourses, auth)
	api.GET("/courses/:slug", s.handlers.Course.GetCourse, auth)
	api.GET("/courses/:slug/content", s.handlers.Course.GetContent, user...)

	// -------- cart --------
	api.GET("/cart", s.handlers.Cart.GetCart, user...)
	api.POST("/cart/items", s.handlers.Cart.AddItem, user...)
	api.DELETE("/cart/items", s.handlers.Cart.RemoveItem, user...)

	// -------- checkout --------
	api.POST("/checkout/session", s.handlers.Checkout.CreateSession, user...)
	api.GET("/orders", s.handlers.Order.ListOrders, user...)

	// -------- account --------
	api.GET("/account/profile", s.handlers.Account.GetProfile, user...)
	api.GET("/admin/users", s.handlers.Account.ListUsers, user...)
	api.PATCH("/admin/users", s.handlers.Account.UpdateRole, user...)
	api.DELETE("/admin/users", s.handlers.Account.DeleteUser, user...)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func metricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
			return err
		}
	}
}
