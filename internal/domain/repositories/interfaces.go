package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/yield-service/yield_service/internal/domain/entities"
)

// PoolRepository defines read access to pools joined to their platform.
// GetByID returns nil, nil when the pool does not exist.
type PoolRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Pool, error)
	ListVisible(ctx context.Context, limit, offset int) ([]*entities.Pool, error)
}

// PlatformRepository defines read access to platforms
type PlatformRepository interface {
	ListVisible(ctx context.Context) ([]*entities.Platform, error)
}
