package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/pkg/logger"
)

const poolColumns = `
	p.id, p.platform_id, p.name, p.token_pair, p.token_address, p.token_symbol, p.chain,
	p.apy, p.tvl, p.raw_data, p.is_visible, p.created_at, p.updated_at,
	pl.id AS "platform.id", pl.name AS "platform.name", pl.slug AS "platform.slug",
	pl.protocol AS "platform.protocol", pl.website AS "platform.website", pl.logo_url AS "platform.logo_url",
	pl.is_visible AS "platform.is_visible", pl.created_at AS "platform.created_at", pl.updated_at AS "platform.updated_at"`

// PoolRepository reads pools joined to their platform
type PoolRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewPoolRepository creates a new pool repository
func NewPoolRepository(db *sqlx.DB, logger *logger.Logger) *PoolRepository {
	return &PoolRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID returns the pool regardless of visibility, nil when it does not exist
func (r *PoolRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Pool, error) {
	query := `SELECT ` + poolColumns + `
		FROM pools p
		JOIN platforms pl ON pl.id = p.platform_id
		WHERE p.id = $1`

	var pool entities.Pool
	err := r.db.GetContext(ctx, &pool, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}

	return &pool, nil
}

// ListVisible returns visible pools on visible platforms, highest TVL first
func (r *PoolRepository) ListVisible(ctx context.Context, limit, offset int) ([]*entities.Pool, error) {
	query := `SELECT ` + poolColumns + `
		FROM pools p
		JOIN platforms pl ON pl.id = p.platform_id
		WHERE p.is_visible = TRUE AND pl.is_visible = TRUE
		ORDER BY p.tvl DESC, p.id
		LIMIT $1 OFFSET $2`

	var pools []*entities.Pool
	if err := r.db.SelectContext(ctx, &pools, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list visible pools: %w", err)
	}

	r.logger.Debug("Listed visible pools", "count", len(pools), "limit", limit, "offset", offset)
	return pools, nil
}

// PlatformRepository reads platforms
type PlatformRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewPlatformRepository creates a new platform repository
func NewPlatformRepository(db *sqlx.DB, logger *logger.Logger) *PlatformRepository {
	return &PlatformRepository{
		db:     db,
		logger: logger,
	}
}

// ListVisible returns visible platforms ordered by name
func (r *PlatformRepository) ListVisible(ctx context.Context) ([]*entities.Platform, error) {
	query := `
		SELECT id, name, slug, protocol, website, logo_url, is_visible, created_at, updated_at
		FROM platforms
		WHERE is_visible = TRUE
		ORDER BY name
	`

	var platforms []*entities.Platform
	if err := r.db.SelectContext(ctx, &platforms, query); err != nil {
		return nil, fmt.Errorf("failed to list platforms: %w", err)
	}
	return platforms, nil
}
