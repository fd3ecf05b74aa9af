package handler

import (
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audit := router.Group("/api/audit", middleware.RequireRole(model.RoleAdmin))
	{
		audit.GET("/recent", h.RecentActivity)
		audit.GET("/logs", h.GetAuditLogs)
	}
}

// RecentActivity returns the latest audit entries shaped for the dashboard feed
// @Summary      Recent activity
// @Description  Returns the newest audit entries with human-readable relative timestamps
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Number of entries (default 10, max 50)"
// @Success      200    {object}  response.Response{data=[]service.ActivityResponse}
// @Failure      500    {object}  response.Response
// @Router       /api/audit/recent [get]
func (h *AuditHandler) RecentActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	activity, err := h.auditService.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, activity))
}

// GetAuditLogs retrieves the paginated audit trail
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/audit/logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs": logs,
		"meta": params.MetaFor(total),
	}))
}
