package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/pkg/logger"
)

// FlowSummarizer builds the cross-pool flow overview
type FlowSummarizer interface {
	FlowSummary(ctx context.Context) (*entities.FlowSummaryResponse, error)
}

// AnalyticsHandlers handles cross-pool analytics endpoints
type AnalyticsHandlers struct {
	summary FlowSummarizer
	logger  *logger.Logger
}

func NewAnalyticsHandlers(summary FlowSummarizer, logger *logger.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{summary: summary, logger: logger}
}

// GetFlowSummary returns net flow and market phase for every visible pool
// GET /api/analytics/flow-summary
func (h *AnalyticsHandlers) GetFlowSummary(c *gin.Context) {
	resp, err := h.summary.FlowSummary(c.Request.Context())
	if err != nil {
		respondDomainError(c, h.logger, err, MsgFlowSummaryFailed)
		return
	}

	respondSuccess(c, resp)
}
