package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	analytics := router.Group("/api/analytics", middleware.RequireRole(model.RoleAdmin))
	{
		analytics.GET("/dashboard", h.Dashboard)
	}
}

// Dashboard returns aggregated revenue and funnel figures
// @Summary      Dashboard analytics
// @Description  Returns revenue, sale counts, lead counts and conversion rate for the requested period
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        period  query     string  false  "Aggregation period: week, month, quarter, year (default: month)"
// @Success      200     {object}  response.Response{data=service.DashboardResponse}
// @Failure      400     {object}  response.Response
// @Router       /api/analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.analyticsService.Dashboard(c.Request.Context(), c.Query("period"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dashboard))
}
