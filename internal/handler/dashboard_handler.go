package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/middleware"
	"github.com/noah-isme/agape-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, year int) (*dto.DashboardSummary, bool, error)
}

// DashboardHandler serves the indicators panel.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Dashboard indicators
// @Description Totals, monthly payroll, gender and school period distributions and the vulnerability map
// @Tags Dashboard
// @Produce json
// @Param year query int false "School year, defaults to the current one"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	year, err := queryYear(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, cacheHit, err := h.service.Summary(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ResponseMeta(c))
}
