package handler

import (
	"net/http"

	"techpay/internal/middleware"
	"techpay/internal/service"
	"techpay/pkg/pagination"
	"techpay/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	activityService   service.ActivityService
	auth              *middleware.Authenticator
}

func NewStatisticsHandler(statisticsService service.StatisticsService, activityService service.ActivityService, auth *middleware.Authenticator) *StatisticsHandler {
	return &StatisticsHandler{
		statisticsService: statisticsService,
		activityService:   activityService,
		auth:              auth,
	}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleConstructor)

	router.GET("/api/statistics/financial", read, h.GetFinancialStats)
	router.GET("/api/activity-logs", h.auth.RequireRole(middleware.RoleAdmin), h.GetActivityLogs)
}

// @Summary      Financial dashboard statistics
// @Description  Net debt and customer credit balance over all orders (never both positive), unallocated money, fine totals and per-constructor figures.
// @Tags         Statistics
// @Produce      json
// @Success      200 {object} response.Response{data=service.FinancialStatsResponse}
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      500 {object} response.Response "Internal server error"
// @Security     BearerAuth
// @Router       /api/statistics/financial [get]
func (h *StatisticsHandler) GetFinancialStats(c *gin.Context) {
	stats, err := h.statisticsService.GetFinancialStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// @Summary      Activity log
// @Tags         Statistics
// @Produce      json
// @Param        action query string false "Filter by action, e.g. ADD_PAYMENT"
// @Param        page  query int false "Page"
// @Param        limit query int false "Page size"
// @Success      200 {object} response.Response{data=[]service.ActivityLogResponse,meta=pagination.Meta}
// @Security     BearerAuth
// @Router       /api/activity-logs [get]
func (h *StatisticsHandler) GetActivityLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.activityService.GetActivityLogs(c.Request.Context(), c.Query("action"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.List(http.StatusOK, logs, p.MetaFor(total)))
}
