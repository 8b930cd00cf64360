package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domainerrors "github.com/yield-service/yield_service/internal/domain/errors"
	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/internal/infrastructure/cache"
	"github.com/yield-service/yield_service/pkg/metrics"
)

// SourceNone marks a batch produced when no provider is configured
const SourceNone = "none"

// SortOrder is the order transfers are returned in
type SortOrder string

// NewestFirst is the only order the analysis accepts
const NewestFirst SortOrder = "newest_first"

// DefaultChain is assumed for pools without a chain
const DefaultChain = "ethereum"

// FetchRequest asks a provider for a token's transfer history
type FetchRequest struct {
	TokenAddress string
	Chain        string
	MaxTransfers int
	Order        SortOrder
}

// Validate checks the request before any provider is called
func (r FetchRequest) Validate() error {
	if !isHexAddress(r.TokenAddress) {
		return domainerrors.ValidationError("tokenAddress", fmt.Sprintf("invalid token address %q", r.TokenAddress))
	}
	if r.MaxTransfers <= 0 {
		return domainerrors.ValidationError("maxTransfers", "maxTransfers must be positive")
	}
	if r.Order != NewestFirst {
		return domainerrors.ValidationError("order", fmt.Sprintf("unsupported sort order %q", r.Order))
	}
	return nil
}

// ChainName is the lower-cased chain, ethereum when unset
func (r FetchRequest) ChainName() string {
	chain := strings.ToLower(strings.TrimSpace(r.Chain))
	if chain == "" {
		return DefaultChain
	}
	return chain
}

// TransferBatch is a provider response
type TransferBatch struct {
	Transfers []entities.Transfer `json:"transfers"`
	Source    string              `json:"source"`
	Truncated bool                `json:"truncated"`
}

// TransferSource fetches transfer history for a token, newest first
type TransferSource interface {
	Name() string
	FetchTransfers(ctx context.Context, req FetchRequest) (*TransferBatch, error)
}

// Configurable is implemented by sources that can be disabled by missing credentials
type Configurable interface {
	Configured() bool
}

// ChainSupporter is implemented by sources that only serve some chains
type ChainSupporter interface {
	SupportsChain(chain string) bool
}

func isConfigured(s TransferSource) bool {
	if c, ok := s.(Configurable); ok {
		return c.Configured()
	}
	return true
}

func supportsChain(s TransferSource, chain string) bool {
	if c, ok := s.(ChainSupporter); ok {
		return c.SupportsChain(chain)
	}
	return true
}

// ChainedSource tries each configured source in order until one succeeds
type ChainedSource struct {
	sources []TransferSource
	logger  *zap.Logger
}

func NewChainedSource(logger *zap.Logger, sources ...TransferSource) *ChainedSource {
	return &ChainedSource{sources: sources, logger: logger}
}

func (c *ChainedSource) Name() string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Configured reports whether at least one source can be called
func (c *ChainedSource) Configured() bool {
	for _, s := range c.sources {
		if isConfigured(s) {
			return true
		}
	}
	return false
}

// FetchTransfers returns the first successful batch. Sources that are not
// configured or do not serve the request's chain are skipped. With nothing left
// it returns an empty batch from SourceNone; if every usable source fails the
// last error is returned.
func (c *ChainedSource) FetchTransfers(ctx context.Context, req FetchRequest) (*TransferBatch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for _, s := range c.sources {
		if !isConfigured(s) || !supportsChain(s, req.ChainName()) {
			continue
		}

		start := time.Now()
		batch, err := s.FetchTransfers(ctx, req)
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.UpstreamFetchDuration.WithLabelValues(s.Name(), status).Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.UpstreamTransfersFetched.WithLabelValues(s.Name()).Add(float64(len(batch.Transfers)))
			return batch, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.logger.Warn("Transfer source failed, trying next",
			zap.String("source", s.Name()),
			zap.String("token", req.TokenAddress),
			zap.Error(err))
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all transfer sources failed: %w", lastErr)
	}

	c.logger.Debug("No transfer source configured",
		zap.String("token", req.TokenAddress),
		zap.String("chain", req.ChainName()))
	return &TransferBatch{Transfers: []entities.Transfer{}, Source: SourceNone}, nil
}

// BatchCache is the subset of the redis cache used for transfer batches
type BatchCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CachedSource serves batches from redis, falling through to the wrapped source
type CachedSource struct {
	next   TransferSource
	cache  BatchCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedSource(next TransferSource, c BatchCache, ttl time.Duration, logger *zap.Logger) *CachedSource {
	return &CachedSource{next: next, cache: c, ttl: ttl, logger: logger}
}

func (c *CachedSource) Name() string { return c.next.Name() }

// Configured delegates to the wrapped source
func (c *CachedSource) Configured() bool { return isConfigured(c.next) }

// CacheKey identifies a batch in redis
func CacheKey(req FetchRequest) string {
	return fmt.Sprintf("transfers:%s:%s:%d", req.ChainName(), NormalizeAddress(req.TokenAddress), req.MaxTransfers)
}

func (c *CachedSource) FetchTransfers(ctx context.Context, req FetchRequest) (*TransferBatch, error) {
	if c.cache == nil || c.ttl <= 0 {
		return c.next.FetchTransfers(ctx, req)
	}

	key := CacheKey(req)
	var cached TransferBatch
	err := c.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		metrics.TransferCacheLookups.WithLabelValues("hit").Inc()
		if cached.Transfers == nil {
			cached.Transfers = []entities.Transfer{}
		}
		return &cached, nil
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.TransferCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.TransferCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("Transfer cache read failed, bypassing", zap.String("key", key), zap.Error(err))
	}

	batch, err := c.next.FetchTransfers(ctx, req)
	if err != nil {
		return nil, err
	}

	// An unconfigured chain is not worth caching.
	if batch.Source != SourceNone {
		if err := c.cache.Set(ctx, key, batch, c.ttl); err != nil {
			c.logger.Warn("Transfer cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return batch, nil
}

// Refresh fetches from the wrapped source and overwrites the cache entry
func (c *CachedSource) Refresh(ctx context.Context, req FetchRequest) (*TransferBatch, error) {
	batch, err := c.next.FetchTransfers(ctx, req)
	if err != nil {
		return nil, err
	}
	if c.cache != nil && c.ttl > 0 && batch.Source != SourceNone {
		if err := c.cache.Set(ctx, CacheKey(req), batch, c.ttl); err != nil {
			return batch, fmt.Errorf("failed to cache transfers: %w", err)
		}
	}
	return batch, nil
}
