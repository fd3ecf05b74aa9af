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

type LeadHandler struct {
	leadService service.LeadService
}

func NewLeadHandler(leadService service.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

func (h *LeadHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Contact form submission is the one public write
	router.POST("/api/leads", h.CreateLead)

	leads := router.Group("/api/leads", middleware.RequireRole(model.RoleAdmin))
	{
		leads.GET("", h.ListLeads)
		leads.PUT("/:id", h.UpdateLead)
		leads.DELETE("/:id", h.DeleteLead)
	}
}

// CreateLead captures a contact-form submission
// @Summary      Create lead
// @Description  Public endpoint capturing a contact-form submission as a new lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateLeadRequest  true  "Lead Payload"
// @Success      201      {object}  response.Response{data=service.LeadResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/leads [post]
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req service.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	lead, err := h.leadService.CreateLead(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, lead))
}

// ListLeads returns a paginated list of leads
// @Summary      List leads
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status (new, contacted, converted, archived)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/leads [get]
func (h *LeadHandler) ListLeads(c *gin.Context) {
	params := pagination.Parse(c)

	leads, total, err := h.leadService.ListLeads(c.Request.Context(), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"leads": leads,
		"meta":  params.MetaFor(total),
	}))
}

// UpdateLead edits a lead's pipeline state
// @Summary      Update lead
// @Tags         leads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Lead ID"
// @Param        payload  body      service.UpdateLeadRequest  true  "Update Lead Payload"
// @Success      200      {object}  response.Response{data=service.LeadResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/leads/{id} [put]
func (h *LeadHandler) UpdateLead(c *gin.Context) {
	var req service.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	lead, err := h.leadService.UpdateLead(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, lead))
}

// DeleteLead removes a lead
// @Summary      Delete lead
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Lead ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/leads/{id} [delete]
func (h *LeadHandler) DeleteLead(c *gin.Context) {
	if err := h.leadService.DeleteLead(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "Lead deleted"))
}
