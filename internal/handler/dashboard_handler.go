package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizrail/quizrail-backend/internal/response"
	"github.com/quizrail/quizrail-backend/internal/service"
)

// DashboardHandler serves archived-result aggregates per exam.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// GetDashboard godoc
// GET /api/v1/dashboard
// Returns every exam in the catalog with participation and score stats.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	entries, err := h.dashboard.GetDashboard(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exams": entries,
	})
}
