package di

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yield-service/yield_service/internal/infrastructure/config"
	"github.com/yield-service/yield_service/pkg/secrets"
)

type mapProvider struct {
	values map[string]string
	err    error
	calls  int
}

func (p *mapProvider) GetSecret(ctx context.Context, key string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if v, ok := p.values[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, key)
}

func TestResolveUpstreamKeys_FillsMissingOnly(t *testing.T) {
	cfg := &config.Config{}
	cfg.Etherscan.APIKey = "from-env"
	provider := &mapProvider{values: map[string]string{
		secrets.AlchemyAPIKey:   "from-store",
		secrets.EtherscanAPIKey: "ignored",
	}}

	err := ResolveUpstreamKeys(context.Background(), cfg, secrets.NewManager(provider), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "from-store", cfg.Alchemy.APIKey)
	assert.Equal(t, "from-env", cfg.Etherscan.APIKey)
	assert.Equal(t, 1, provider.calls)
}

func TestResolveUpstreamKeys_MissingSecretLeavesSourceUnconfigured(t *testing.T) {
	cfg := &config.Config{}

	err := ResolveUpstreamKeys(context.Background(), cfg, secrets.NewManager(&mapProvider{}), zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, cfg.Alchemy.APIKey)
	assert.Empty(t, cfg.Etherscan.APIKey)
}

func TestResolveUpstreamKeys_BackendError(t *testing.T) {
	cfg := &config.Config{}
	provider := &mapProvider{err: errors.New("access denied")}

	err := ResolveUpstreamKeys(context.Background(), cfg, secrets.NewManager(provider), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alchemy")
}

func TestNewSecretsProvider(t *testing.T) {
	p, err := NewSecretsProvider(context.Background(), config.SecretsConfig{Provider: "env", CacheTTL: 60})
	require.NoError(t, err)
	assert.IsType(t, &secrets.CachedProvider{}, p)

	p, err = NewSecretsProvider(context.Background(), config.SecretsConfig{Provider: "env"})
	require.NoError(t, err)
	assert.IsType(t, &secrets.EnvProvider{}, p)

	_, err = NewSecretsProvider(context.Background(), config.SecretsConfig{Provider: "vault"})
	assert.Error(t, err)
}
