package di

import (
	"time"

	"go.uber.org/zap"

	"github.com/yield-service/yield_service/internal/adapters/alchemy"
	"github.com/yield-service/yield_service/internal/adapters/etherscan"
	"github.com/yield-service/yield_service/internal/domain/services/flow"
	"github.com/yield-service/yield_service/internal/infrastructure/cache"
	"github.com/yield-service/yield_service/internal/infrastructure/config"
	"github.com/yield-service/yield_service/pkg/retry"
	"github.com/yield-service/yield_service/pkg/security"
)

// FlowSettings maps the flow config section onto the analysis settings
func FlowSettings(cfg config.FlowConfig) flow.Settings {
	return flow.Settings{
		Quality: flow.QualityPolicy{
			InsufficientTimespan: time.Duration(cfg.InsufficientTimespanH) * time.Hour,
			LimitedCoverage:      time.Duration(cfg.LimitedCoverageH) * time.Hour,
		},
		MaxTransfers:        cfg.MaxTransfers,
		MaxDisplayTransfers: cfg.MaxDisplayTransfers,
		DefaultPageLimit:    cfg.DefaultPageLimit,
		WhaleMultiplier:     cfg.WhaleMultiplier,
		TopWhales:           cfg.TopWhales,
		SmartMoneyMinTxs:    cfg.SmartMoneyMinTxs,
		TopSmartMoney:       cfg.TopSmartMoney,
		VelocityWindow:      cfg.VelocityWindow,
		AcceleratingRatio:   cfg.AcceleratingRatio,
		DeceleratingRatio:   cfg.DeceleratingRatio,
		HourlyBuckets:       cfg.HourlyBuckets,
		DailyBuckets:        cfg.DailyBuckets,
	}
}

// ProtocolTable builds the protocol address table from config
func ProtocolTable(cfg config.FlowConfig) (*flow.ProtocolTable, error) {
	addresses := make([]flow.ProtocolAddress, 0, len(cfg.Protocols))
	for _, p := range cfg.Protocols {
		addresses = append(addresses, flow.ProtocolAddress{
			Address:  p.Address,
			Protocol: p.Protocol,
			Label:    p.Label,
		})
	}
	return flow.NewProtocolTable(addresses)
}

// SourceBuilder assembles the transfer source chain
type SourceBuilder struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceBuilder creates a new source builder
func NewSourceBuilder(cfg *config.Config, logger *zap.Logger) *SourceBuilder {
	return &SourceBuilder{cfg: cfg, logger: logger}
}

// Sources holds the upstream clients and the composed source
type Sources struct {
	Alchemy   *alchemy.Client
	Etherscan *etherscan.Client
	Chain     *flow.ChainedSource
	Cached    *flow.CachedSource // nil when redis is disabled
	Source    flow.TransferSource
}

// Build wires Alchemy first and Etherscan as fallback, behind the redis cache
// when one is available.
func (b *SourceBuilder) Build(redisClient cache.RedisClient) *Sources {
	policy := retry.DefaultPolicy()

	alchemyPolicy := policy
	if b.cfg.Alchemy.MaxRetries > 0 {
		alchemyPolicy.MaxRetries = b.cfg.Alchemy.MaxRetries
	}
	alchemyClient := alchemy.NewClient(alchemy.Config{
		APIKey:   b.cfg.Alchemy.APIKey,
		BaseURL:  b.cfg.Alchemy.BaseURL,
		Timeout:  time.Duration(b.cfg.Alchemy.Timeout) * time.Second,
		PageSize: b.cfg.Alchemy.PageSize,
		Retry:    alchemyPolicy,
	}, b.logger.Named("alchemy"))

	etherscanPolicy := policy
	if b.cfg.Etherscan.MaxRetries > 0 {
		etherscanPolicy.MaxRetries = b.cfg.Etherscan.MaxRetries
	}
	etherscanClient := etherscan.NewClient(etherscan.Config{
		APIKey:   b.cfg.Etherscan.APIKey,
		BaseURL:  b.cfg.Etherscan.BaseURL,
		Timeout:  time.Duration(b.cfg.Etherscan.Timeout) * time.Second,
		PageSize: b.cfg.Etherscan.PageSize,
		Retry:    etherscanPolicy,
	}, b.logger.Named("etherscan"))

	if !alchemyClient.Configured() && !etherscanClient.Configured() {
		b.logger.Warn("No transfer provider configured; token-transfers will return empty analyses")
	} else {
		b.logger.Info("Transfer providers configured",
			zap.String("alchemy_key", security.MaskAPIKey(b.cfg.Alchemy.APIKey)),
			zap.String("etherscan_key", security.MaskAPIKey(b.cfg.Etherscan.APIKey)))
	}

	chain := flow.NewChainedSource(b.logger, alchemyClient, etherscanClient)
	sources := &Sources{
		Alchemy:   alchemyClient,
		Etherscan: etherscanClient,
		Chain:     chain,
		Source:    chain,
	}

	if redisClient != nil && b.cfg.Flow.CacheTTL() > 0 {
		sources.Cached = flow.NewCachedSource(chain, redisClient, b.cfg.Flow.CacheTTL(), b.logger)
		sources.Source = sources.Cached
	}
	return sources
}
