package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	value string
	calls int
}

func (p *countingProvider) GetSecret(ctx context.Context, key string) (string, error) {
	p.calls++
	return p.value, nil
}

func TestCachedProvider_ExpiresAfterTTL(t *testing.T) {
	inner := &countingProvider{value: "key-1"}
	cached := NewCachedProvider(inner, time.Minute)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		v, err := cached.GetSecret(context.Background(), AlchemyAPIKey)
		require.NoError(t, err)
		assert.Equal(t, "key-1", v)
	}
	assert.Equal(t, 1, inner.calls)

	now = now.Add(2 * time.Minute)
	inner.value = "key-2"
	v, err := cached.GetSecret(context.Background(), AlchemyAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "key-2", v)
	assert.Equal(t, 2, inner.calls)

	cached.Clear()
	_, _ = cached.GetSecret(context.Background(), AlchemyAPIKey)
	assert.Equal(t, 3, inner.calls)
}

func TestEnvProvider(t *testing.T) {
	t.Setenv(EtherscanAPIKey, "abc")
	m := NewManager(NewEnvProvider())

	v, err := m.GetEtherscanAPIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	t.Setenv(AlchemyAPIKey, "")
	_, err = m.GetAlchemyAPIKey(context.Background())
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

type fakeSecretsManager struct {
	secretID string
	out      *secretsmanager.GetSecretValueOutput
	err      error
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.secretID = aws.ToString(in.SecretId)
	return f.out, f.err
}

func TestAWSSecretsManagerProvider(t *testing.T) {
	client := &fakeSecretsManager{out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String("secret")}}
	p := NewAWSSecretsManagerProviderWithClient(client, "yield-service/")

	v, err := p.GetSecret(context.Background(), AlchemyAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "secret", v)
	assert.Equal(t, "yield-service/ALCHEMY_API_KEY", client.secretID)

	client.out, client.err = nil, &types.ResourceNotFoundException{Message: aws.String("missing")}
	_, err = p.GetSecret(context.Background(), AlchemyAPIKey)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	client.err = errors.New("throttled")
	_, err = p.GetSecret(context.Background(), AlchemyAPIKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSecretNotFound)
}
