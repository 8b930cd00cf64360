package pool

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yield-service/yield_service/internal/domain/entities"
	domainerrors "github.com/yield-service/yield_service/internal/domain/errors"
	"github.com/yield-service/yield_service/internal/domain/repositories"
	"github.com/yield-service/yield_service/internal/domain/services/flow"
)

// rawDataTokenPaths are checked in order when token_address is empty
var rawDataTokenPaths = [][]string{
	{"underlyingToken"},
	{"asset", "address"},
	{"underlying_token"},
}

const maxListLimit = 200

// Service provides read access to published pools
type Service struct {
	repo   repositories.PoolRepository
	logger *zap.Logger
}

func NewService(repo repositories.PoolRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetVisiblePool returns the pool only if it and its platform are visible
func (s *Service) GetVisiblePool(ctx context.Context, id uuid.UUID) (*entities.Pool, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool: %w", err)
	}
	if p == nil || !p.Visible() {
		return nil, domainerrors.NotFoundError("POOL")
	}
	return p, nil
}

// ResolveTokenAddress finds the pool's underlying ERC-20 address
func (s *Service) ResolveTokenAddress(p *entities.Pool) (string, error) {
	if p.TokenAddress != nil && common.IsHexAddress(*p.TokenAddress) {
		return flow.NormalizeAddress(*p.TokenAddress), nil
	}

	for _, path := range rawDataTokenPaths {
		if candidate, ok := p.RawData.String(path...); ok && common.IsHexAddress(candidate) {
			return flow.NormalizeAddress(candidate), nil
		}
	}

	s.logger.Debug("Pool has no resolvable token address", zap.String("pool_id", p.ID.String()))
	return "", domainerrors.NotFoundError("TOKEN_ADDRESS")
}

// ListVisible pages through visible pools
func (s *Service) ListVisible(ctx context.Context, limit, offset int) ([]*entities.Pool, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	pools, err := s.repo.ListVisible(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	if pools == nil {
		pools = []*entities.Pool{}
	}
	return pools, nil
}

// ListAllVisible walks every page of visible pools
func (s *Service) ListAllVisible(ctx context.Context) ([]*entities.Pool, error) {
	var all []*entities.Pool
	for offset := 0; ; offset += maxListLimit {
		page, err := s.ListVisible(ctx, maxListLimit, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < maxListLimit {
			return all, nil
		}
	}
}
