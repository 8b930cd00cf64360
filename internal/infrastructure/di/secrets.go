package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yield-service/yield_service/internal/infrastructure/config"
	"github.com/yield-service/yield_service/pkg/secrets"
)

// NewSecretsProvider builds the configured secrets backend behind a TTL cache
func NewSecretsProvider(ctx context.Context, cfg config.SecretsConfig) (secrets.Provider, error) {
	var provider secrets.Provider
	switch cfg.Provider {
	case "", "env":
		provider = secrets.NewEnvProvider()
	case "aws":
		aws, err := secrets.NewAWSSecretsManagerProvider(ctx, cfg.Region, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		provider = aws
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}

	if cfg.CacheTTL > 0 {
		provider = secrets.NewCachedProvider(provider, time.Duration(cfg.CacheTTL)*time.Second)
	}
	return provider, nil
}

// ResolveUpstreamKeys fills provider API keys that are not already set.
// A key missing from the backend leaves that source unconfigured.
func ResolveUpstreamKeys(ctx context.Context, cfg *config.Config, manager *secrets.Manager, logger *zap.Logger) error {
	lookups := []struct {
		name   string
		target *string
		get    func(context.Context) (string, error)
	}{
		{"alchemy", &cfg.Alchemy.APIKey, manager.GetAlchemyAPIKey},
		{"etherscan", &cfg.Etherscan.APIKey, manager.GetEtherscanAPIKey},
	}

	for _, l := range lookups {
		if *l.target != "" {
			continue
		}
		value, err := l.get(ctx)
		if errors.Is(err, secrets.ErrSecretNotFound) {
			logger.Warn("No API key configured for transfer source", zap.String("source", l.name))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to resolve %s api key: %w", l.name, err)
		}
		*l.target = value
	}
	return nil
}
