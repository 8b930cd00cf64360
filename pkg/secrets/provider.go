package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrSecretNotFound is returned when a provider has no value for a key
var ErrSecretNotFound = errors.New("secret not found")

// Provider resolves secret values by key
type Provider interface {
	GetSecret(ctx context.Context, key string) (string, error)
}

type EnvProvider struct{}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

func (p *EnvProvider) GetSecret(ctx context.Context, key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return value, nil
}

// CachedProvider memoizes another provider's values for ttl
type CachedProvider struct {
	provider Provider
	cache    map[string]cachedSecret
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

func NewCachedProvider(provider Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    make(map[string]cachedSecret),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (p *CachedProvider) GetSecret(ctx context.Context, key string) (string, error) {
	p.mu.RLock()
	cached, ok := p.cache[key]
	p.mu.RUnlock()
	if ok && p.now().Before(cached.expiresAt) {
		return cached.value, nil
	}

	value, err := p.provider.GetSecret(ctx, key)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.cache[key] = cachedSecret{value: value, expiresAt: p.now().Add(p.ttl)}
	p.mu.Unlock()

	return value, nil
}

// Clear drops every cached value
func (p *CachedProvider) Clear() {
	p.mu.Lock()
	p.cache = make(map[string]cachedSecret)
	p.mu.Unlock()
}

const (
	AlchemyAPIKey   = "ALCHEMY_API_KEY"
	EtherscanAPIKey = "ETHERSCAN_API_KEY"
)

// Manager exposes the named secrets the service needs
type Manager struct {
	provider Provider
}

func NewManager(provider Provider) *Manager {
	return &Manager{provider: provider}
}

func (m *Manager) GetAlchemyAPIKey(ctx context.Context) (string, error) {
	return m.provider.GetSecret(ctx, AlchemyAPIKey)
}

func (m *Manager) GetEtherscanAPIKey(ctx context.Context) (string, error) {
	return m.provider.GetSecret(ctx, EtherscanAPIKey)
}
