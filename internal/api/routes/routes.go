package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yield-service/yield_service/docs"
	"github.com/yield-service/yield_service/internal/api/handlers"
	"github.com/yield-service/yield_service/internal/api/middleware"
	"github.com/yield-service/yield_service/internal/infrastructure/di"
	"github.com/yield-service/yield_service/pkg/tracing"
)

// Version is reported by /health and /version; set with -ldflags at build time
var Version = "dev"

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	router := gin.New()

	// Global middleware - order matters
	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	var cachePinger handlers.CachePinger
	if container.RedisClient != nil {
		cachePinger = container.RedisClient
	}
	coreHandlers := handlers.NewCoreHandlers(container.DB, cachePinger, Version, container.Logger)
	poolHandlers := handlers.NewPoolHandlers(container.GetPoolService(), container.PlatformRepo, container.Logger)
	flowHandlers := handlers.NewFlowHandlers(container.GetFlowService(), container.Logger)
	analyticsHandlers := handlers.NewAnalyticsHandlers(container.GetFlowSummaryService(), container.Logger)

	// Health checks
	router.GET("/health", coreHandlers.Health)
	router.GET("/ready", coreHandlers.Ready)
	router.GET("/live", coreHandlers.Live)
	router.GET("/version", coreHandlers.Version)
	router.GET("/metrics", handlers.Metrics())

	// Swagger documentation (development only)
	if container.Config.Environment != "production" {
		docs.SwaggerInfo.Version = Version
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := router.Group("/api")
	{
		api.GET("/platforms", poolHandlers.ListPlatforms)

		pools := api.Group("/pools")
		{
			pools.GET("", poolHandlers.ListPools)
			pools.GET("/:poolId", poolHandlers.GetPool)

			transfers := []gin.HandlerFunc{}
			if container.TransferRateLimiter != nil {
				transfers = append(transfers, container.TransferRateLimiter.Middleware())
			}
			transfers = append(transfers, flowHandlers.GetTokenTransfers)
			pools.GET("/:poolId/token-transfers", transfers...)
		}

		analytics := api.Group("/analytics")
		{
			analytics.GET("/flow-summary", analyticsHandlers.GetFlowSummary)
		}
	}

	return router
}
