package handler

import (
	"coursecart/internal/currency"
	"coursecart/internal/dto"
	"coursecart/internal/middleware"
	"coursecart/internal/model"
	"coursecart/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type CourseHandler struct {
	catalogService service.CatalogService
	accessService  service.AccessService
}

func NewCourseHandler(catalogService service.CatalogService, accessService service.AccessService) *CourseHandler {
	return &CourseHandler{
		catalogService: catalogService,
		accessService:  accessService,
	}
}

func (h *CourseHandler) ListCourses(c echo.Context) error {
	ctx := c.Request().Context()

	courses, err := h.catalogService.ListActive(ctx)
	if err != nil {
		return httpError(err)
	}

	resp := make([]dto.Course, 0, len(courses))
	for _, course := range courses {
		resp = append(resp, toCourse(course))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CourseHandler) GetCourse(c echo.Context) error {
	ctx := c.Request().Context()

	course, err := h.catalogService.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, toCourse(course))
}

// GetContent serves the purchase-time delivery reference only to buyers of
// the course, whether or not it is still listed.
func (h *CourseHandler) GetContent(c echo.Context) error {
	ctx := c.Request().Context()

	purchased, err := h.accessService.PurchasedContent(ctx, middleware.UserID(c), c.Param("slug"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.CourseContentResponse{
		Course:      toCourse(purchased.Course),
		DeliveryURL: purchased.DeliveryURL,
	})
}

func toCourse(course *model.Course) dto.Course {
	return dto.Course{
		ID:           course.ID,
		Slug:         course.Slug,
		Name:         course.Name,
		Description:  course.Description,
		PriceCents:   course.PriceCents,
		Currency:     course.Currency,
		Price:        currency.MustFormat(course.PriceCents, course.Currency, currency.LocaleFor(course.Currency)),
		ThumbnailURL: course.ThumbnailURL,
	}
}
