package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/pkg/logger"
)

const (
	defaultPoolListLimit = 50
	maxPoolListLimit     = 200
)

// PoolService is the pool catalogue used by the handlers
type PoolService interface {
	ListVisible(ctx context.Context, limit, offset int) ([]*entities.Pool, error)
	GetVisiblePool(ctx context.Context, id uuid.UUID) (*entities.Pool, error)
}

// PlatformLister lists published platforms
type PlatformLister interface {
	ListVisible(ctx context.Context) ([]*entities.Platform, error)
}

// PoolHandlers serves the pool catalogue
type PoolHandlers struct {
	pools     PoolService
	platforms PlatformLister
	logger    *logger.Logger
}

func NewPoolHandlers(pools PoolService, platforms PlatformLister, logger *logger.Logger) *PoolHandlers {
	return &PoolHandlers{pools: pools, platforms: platforms, logger: logger}
}

// ListPools returns visible pools ordered by TVL
// @Summary List pools
// @Tags pools
// @Produce json
// @Param limit query int false "Page size (max 200)"
// @Param offset query int false "Offset"
// @Success 200 {object} entities.PoolListResponse
// @Failure 500 {object} entities.ErrorResponse
// @Router /api/pools [get]
func (h *PoolHandlers) ListPools(c *gin.Context) {
	limit := parseIntParam(c, "limit", defaultPoolListLimit)
	if limit <= 0 || limit > maxPoolListLimit {
		limit = defaultPoolListLimit
	}
	offset := parseIntParam(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	pools, err := h.pools.ListVisible(c.Request.Context(), limit, offset)
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to list pools")
		return
	}

	respondSuccess(c, entities.PoolListResponse{
		Pools:  pools,
		Count:  len(pools),
		Limit:  limit,
		Offset: offset,
	})
}

// GetPool returns one visible pool
// @Summary Get pool
// @Tags pools
// @Produce json
// @Param poolId path string true "Pool ID"
// @Success 200 {object} entities.Pool
// @Failure 400 {object} entities.ErrorResponse
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/pools/{poolId} [get]
func (h *PoolHandlers) GetPool(c *gin.Context) {
	raw := c.Param("poolId")
	poolID, err := parseUUID(raw)
	if err != nil {
		SendInvalidPoolID(c, raw)
		return
	}

	pool, err := h.pools.GetVisiblePool(c.Request.Context(), poolID)
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to get pool")
		return
	}

	respondSuccess(c, pool)
}

// ListPlatforms returns visible platforms
// @Summary List platforms
// @Tags pools
// @Produce json
// @Success 200 {object} entities.PlatformListResponse
// @Router /api/platforms [get]
func (h *PoolHandlers) ListPlatforms(c *gin.Context) {
	platforms, err := h.platforms.ListVisible(c.Request.Context())
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to list platforms")
		return
	}
	if platforms == nil {
		platforms = []*entities.Platform{}
	}

	respondSuccess(c, entities.PlatformListResponse{Platforms: platforms, Count: len(platforms)})
}
