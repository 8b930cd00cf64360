package di

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yield-service/yield_service/internal/domain/services/analytics"
	"github.com/yield-service/yield_service/internal/domain/services/flow"
	"github.com/yield-service/yield_service/internal/domain/services/pool"
	"github.com/yield-service/yield_service/internal/infrastructure/cache"
	"github.com/yield-service/yield_service/internal/infrastructure/config"
	"github.com/yield-service/yield_service/internal/infrastructure/repositories"
	"github.com/yield-service/yield_service/internal/workers/transfer_cache_warmer"
	"github.com/yield-service/yield_service/pkg/logger"
	"github.com/yield-service/yield_service/pkg/ratelimit"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Logger *logger.Logger
	ZapLog *zap.Logger

	// Optional; nil when redis is disabled
	RedisClient cache.RedisClient

	// Repositories
	PoolRepo     *repositories.PoolRepository
	PlatformRepo *repositories.PlatformRepository

	// External Services
	Sources *Sources

	// Domain Services
	ProtocolTable      *flow.ProtocolTable
	PoolService        *pool.Service
	FlowService        *flow.Service
	FlowSummaryService *analytics.FlowSummaryService

	// Redis-backed components, nil without redis
	TransferRateLimiter *ratelimit.TieredLimiter
	CacheWarmer         *transfer_cache_warmer.Worker
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, db *sqlx.DB, redisClient cache.RedisClient, log *logger.Logger) (*Container, error) {
	zapLog := log.Zap()

	table, err := ProtocolTable(cfg.Flow)
	if err != nil {
		return nil, fmt.Errorf("invalid protocol table: %w", err)
	}

	poolRepo := repositories.NewPoolRepository(db, log)
	platformRepo := repositories.NewPlatformRepository(db, log)

	sources := NewSourceBuilder(cfg, zapLog).Build(redisClient)

	poolService := pool.NewService(poolRepo, zapLog)
	settings := FlowSettings(cfg.Flow)
	flowService := flow.NewService(poolService, sources.Source, table, settings, zapLog.Named("flow"))

	jobTimeout := time.Duration(cfg.Workers.JobTimeout) * time.Second
	summaryService := analytics.NewFlowSummaryService(poolService, flowService, cfg.Workers.SummaryWorkers, jobTimeout, zapLog.Named("flow_summary"))

	c := &Container{
		Config:             cfg,
		DB:                 db,
		Logger:             log,
		ZapLog:             zapLog,
		RedisClient:        redisClient,
		PoolRepo:           poolRepo,
		PlatformRepo:       platformRepo,
		Sources:            sources,
		ProtocolTable:      table,
		PoolService:        poolService,
		FlowService:        flowService,
		FlowSummaryService: summaryService,
	}

	if redisClient != nil {
		c.TransferRateLimiter = ratelimit.NewTieredLimiter(redisClient.Client(), ratelimit.TieredConfig{
			EndpointLimits: map[string]ratelimit.EndpointLimit{
				TokenTransfersRoute: {Limit: int64(cfg.Server.TransferRatePerMin), Window: time.Minute},
			},
		}, zapLog.Named("ratelimit"))
	}

	if sources.Cached != nil && cfg.Workers.CacheWarmEnabled {
		c.CacheWarmer = transfer_cache_warmer.NewWorker(poolService, sources.Cached, transfer_cache_warmer.Config{
			Schedule:     cfg.Workers.CacheWarmSchedule,
			Workers:      cfg.Workers.CacheWarmWorkers,
			JobTimeout:   jobTimeout,
			MaxTransfers: flowService.Settings().MaxTransfers,
		}, zapLog.Named("cache_warmer"))
	}

	log.Info("Container initialized",
		"protocol_addresses", table.Len(),
		"transfer_source", sources.Source.Name(),
		"redis_enabled", redisClient != nil,
		"cache_warmer_enabled", c.CacheWarmer != nil)

	return c, nil
}

// TokenTransfersRoute is the route template the redis limiter is keyed on
const TokenTransfersRoute = "/api/pools/:poolId/token-transfers"

// GetPoolService returns the pool service
func (c *Container) GetPoolService() *pool.Service {
	return c.PoolService
}

// GetFlowService returns the flow analysis service
func (c *Container) GetFlowService() *flow.Service {
	return c.FlowService
}

// GetFlowSummaryService returns the cross-pool summary service
func (c *Container) GetFlowSummaryService() *analytics.FlowSummaryService {
	return c.FlowSummaryService
}
