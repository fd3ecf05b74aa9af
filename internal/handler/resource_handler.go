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

type ResourceHandler struct {
	resourceService service.ResourceService
}

func NewResourceHandler(resourceService service.ResourceService) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService}
}

func (h *ResourceHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Public listing shows published entries only; an admin credential
	// widens it to everything.
	router.GET("/api/resources", h.ListResources)

	resources := router.Group("/api/resources", middleware.RequireRole(model.RoleAdmin))
	{
		resources.POST("", h.CreateResource)
		resources.PUT("/:id", h.UpdateResource)
		resources.DELETE("/:id", h.DeleteResource)
	}
}

// ListResources returns coaching materials
// @Summary      List resources
// @Description  Public callers see published resources; admins see all
// @Tags         resources
// @Produce      json
// @Param        category  query     string  false  "Filter by category"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=object}
// @Failure      500       {object}  response.Response
// @Router       /api/resources [get]
func (h *ResourceHandler) ListResources(c *gin.Context) {
	params := pagination.Parse(c)

	publishedOnly := true
	if identity, err := middleware.Verify(c); err == nil && identity != nil && identity.Role == model.RoleAdmin {
		publishedOnly = false
	}

	resources, total, err := h.resourceService.ListResources(c.Request.Context(), c.Query("category"), publishedOnly, params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"resources": resources,
		"meta":      params.MetaFor(total),
	}))
}

// CreateResource adds a coaching material
// @Summary      Create resource
// @Tags         resources
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateResourceRequest  true  "Resource Payload"
// @Success      201      {object}  response.Response{data=service.ResourceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/resources [post]
func (h *ResourceHandler) CreateResource(c *gin.Context) {
	var req service.CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	resource, err := h.resourceService.CreateResource(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, resource))
}

// UpdateResource edits a coaching material
// @Summary      Update resource
// @Tags         resources
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Resource ID"
// @Param        payload  body      service.UpdateResourceRequest  true  "Update Resource Payload"
// @Success      200      {object}  response.Response{data=service.ResourceResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/resources/{id} [put]
func (h *ResourceHandler) UpdateResource(c *gin.Context) {
	var req service.UpdateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	resource, err := h.resourceService.UpdateResource(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resource))
}

// DeleteResource removes a coaching material
// @Summary      Delete resource
// @Tags         resources
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Resource ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/resources/{id} [delete]
func (h *ResourceHandler) DeleteResource(c *gin.Context) {
	if err := h.resourceService.DeleteResource(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "Resource deleted"))
}
