package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/pkg/logger"
)

// FlowService produces the token-transfer payload for a pool
type FlowService interface {
	AnalyzePool(ctx context.Context, poolID uuid.UUID, page, limit int) (*entities.TokenTransfersResponse, error)
}

// FlowHandlers serves token flow analysis
type FlowHandlers struct {
	flow   FlowService
	logger *logger.Logger
}

func NewFlowHandlers(flow FlowService, logger *logger.Logger) *FlowHandlers {
	return &FlowHandlers{flow: flow, logger: logger}
}

// GetTokenTransfers returns recent transfers and flow analysis for a pool's token
// @Summary Token transfers and flow analysis
// @Description Classifies the pool token's transfers into inflows and outflows and aggregates them over 24h, 7d, 30d and all time.
// @Tags flow
// @Produce json
// @Param poolId path string true "Pool ID"
// @Param page query int false "Display page (1-based)"
// @Param limit query int false "Display rows per page (max 50)"
// @Success 200 {object} entities.TokenTransfersResponse
// @Failure 400 {object} entities.ErrorResponse
// @Failure 404 {object} entities.ErrorResponse
// @Failure 500 {object} entities.ErrorResponse
// @Router /api/pools/{poolId}/token-transfers [get]
func (h *FlowHandlers) GetTokenTransfers(c *gin.Context) {
	raw := c.Param("poolId")
	poolID, err := parseUUID(raw)
	if err != nil {
		SendInvalidPoolID(c, raw)
		return
	}

	page := parseIntParam(c, "page", 1)
	limit := parseIntParam(c, "limit", 0)

	resp, err := h.flow.AnalyzePool(c.Request.Context(), poolID, page, limit)
	if err != nil {
		respondDomainError(c, h.logger, err, MsgTransfersFailed)
		return
	}

	respondSuccess(c, resp)
}
