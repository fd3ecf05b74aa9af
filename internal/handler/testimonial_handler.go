package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type TestimonialHandler struct {
	testimonialService service.TestimonialService
}

func NewTestimonialHandler(testimonialService service.TestimonialService) *TestimonialHandler {
	return &TestimonialHandler{testimonialService: testimonialService}
}

func (h *TestimonialHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Public listing shows approved entries only; an admin credential
	// widens it to everything.
	router.GET("/api/testimonials", h.ListTestimonials)

	testimonials := router.Group("/api/testimonials", middleware.RequireRole(model.RoleAdmin))
	{
		testimonials.POST("", h.CreateTestimonial)
		testimonials.PUT("/:id", h.UpdateTestimonial)
		testimonials.DELETE("/:id", h.DeleteTestimonial)
	}
}

// ListTestimonials returns client quotes
// @Summary      List testimonials
// @Description  Public callers see approved testimonials; admins see all
// @Tags         testimonials
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/testimonials [get]
func (h *TestimonialHandler) ListTestimonials(c *gin.Context) {
	params := pagination.Parse(c)

	approvedOnly := true
	if identity, err := middleware.Verify(c); err == nil && identity != nil && identity.Role == model.RoleAdmin {
		approvedOnly = false
	}

	testimonials, total, err := h.testimonialService.ListTestimonials(c.Request.Context(), approvedOnly, params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"testimonials": testimonials,
		"meta":         params.MetaFor(total),
	}))
}

// CreateTestimonial adds a client quote
// @Summary      Create testimonial
// @Tags         testimonials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTestimonialRequest  true  "Testimonial Payload"
// @Success      201      {object}  response.Response{data=service.TestimonialResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/testimonials [post]
func (h *TestimonialHandler) CreateTestimonial(c *gin.Context) {
	var req service.CreateTestimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	testimonial, err := h.testimonialService.CreateTestimonial(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, testimonial))
}

// UpdateTestimonial edits a client quote
// @Summary      Update testimonial
// @Tags         testimonials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Testimonial ID"
// @Param        payload  body      service.UpdateTestimonialRequest  true  "Update Testimonial Payload"
// @Success      200      {object}  response.Response{data=service.TestimonialResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/testimonials/{id} [put]
func (h *TestimonialHandler) UpdateTestimonial(c *gin.Context) {
	var req service.UpdateTestimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	testimonial, err := h.testimonialService.UpdateTestimonial(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, testimonial))
}

// DeleteTestimonial removes a client quote
// @Summary      Delete testimonial
// @Tags         testimonials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Testimonial ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/testimonials/{id} [delete]
func (h *TestimonialHandler) DeleteTestimonial(c *gin.Context) {
	if err := h.testimonialService.DeleteTestimonial(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "Testimonial deleted"))
}
