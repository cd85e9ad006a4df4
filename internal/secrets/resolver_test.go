package secrets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/pkg/model"
	pkgsecrets "github.com/Checker-Finance/swap-broker/pkg/secrets"
)

// --- Mock Provider ---

type mockProvider struct {
	secrets     map[string]map[string]string
	secretNames []string // for ListSecrets
	err         error
	calls       int
}

func (m *mockProvider) GetSecret(_ context.Context, key string) (map[string]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.secrets[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("secret not found: %s", key)
}

func (m *mockProvider) ListSecrets(_ context.Context, _ string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.secretNames, nil
}

func newCache() *pkgsecrets.Cache[ProviderCredentials] {
	return pkgsecrets.NewCache[ProviderCredentials](5 * time.Minute)
}

// --- Tests ---

func TestCredentials_CacheHit(t *testing.T) {
	cache := newCache()
	cache.Put("near_intents", ProviderCredentials{JWT: "cached-jwt"})

	mock := &mockProvider{}
	r := NewResolver(zap.NewNop(), "swap-broker/providers/", mock, cache)

	creds := r.Credentials(context.Background(), model.NearIntentsProvider)

	assert.Equal(t, "cached-jwt", creds.JWT)
	assert.Equal(t, 0, mock.calls, "should not call provider on cache hit")
}

func TestCredentials_CacheMiss_FetchFromProvider(t *testing.T) {
	cache := newCache()
	mock := &mockProvider{
		secrets: map[string]map[string]string{
			"swap-broker/providers/near_intents": {
				"base_url": "https://1click.example.com",
				"jwt":      "aws-jwt-123",
			},
		},
	}
	r := NewResolver(zap.NewNop(), "swap-broker/providers/", mock, cache)

	creds := r.Credentials(context.Background(), model.NearIntentsProvider)
	assert.Equal(t, "https://1click.example.com", creds.BaseURL)
	assert.Equal(t, "aws-jwt-123", creds.JWT)
	assert.Equal(t, 1, mock.calls)

	// Second call should hit cache — no additional provider call
	creds2 := r.Credentials(context.Background(), model.NearIntentsProvider)
	assert.Equal(t, "aws-jwt-123", creds2.JWT)
	assert.Equal(t, 1, mock.calls, "should not call provider again on cache hit")
}

func TestCredentials_ProviderErrorFallsBackToEnvUncached(t *testing.T) {
	t.Setenv("CHAINFLIP_API_URL", "https://broker.dev.example.com")

	cache := newCache()
	mock := &mockProvider{err: fmt.Errorf("aws: access denied")}
	r := NewResolver(zap.NewNop(), "swap-broker/providers/", mock, cache)

	creds := r.Credentials(context.Background(), model.ChainflipProvider)
	assert.Equal(t, "https://broker.dev.example.com", creds.BaseURL)
	assert.Equal(t, 1, mock.calls)

	// The fallback is not cached: the next resolution retries AWS.
	_ = r.Credentials(context.Background(), model.ChainflipProvider)
	assert.Equal(t, 2, mock.calls)
}

func TestCredentials_NoAWSProviderUsesEnv(t *testing.T) {
	t.Setenv("BUTTER_SWAP_API_KEY", "env-key")

	r := NewResolver(zap.NewNop(), "swap-broker/providers/", nil, newCache())

	creds := r.Credentials(context.Background(), model.ButterSwapProvider)
	assert.Equal(t, "env-key", creds.APIKey)
	assert.Empty(t, creds.JWT)
}

func TestCredentials_UnconfiguredProviderIsZero(t *testing.T) {
	r := NewResolver(zap.NewNop(), "swap-broker/providers/", nil, newCache())

	creds := r.Credentials(context.Background(), model.ThorchainProvider)
	assert.Equal(t, ProviderCredentials{}, creds)
}

func TestWalletSeed_DevHexWinsWithoutAWSCall(t *testing.T) {
	mock := &mockProvider{}
	r := NewResolver(zap.NewNop(), "swap-broker/providers/", mock, newCache())

	seed, err := r.WalletSeed(context.Background(), "swap-broker/wallet-seed", "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", seed)
	assert.Equal(t, 0, mock.calls)
}

func TestWalletSeed_FromSecretsManager(t *testing.T) {
	mock := &mockProvider{
		secrets: map[string]map[string]string{
			"swap-broker/wallet-seed": {"seed_hex": "8f2a9c"},
		},
	}
	r := NewResolver(zap.NewNop(), "swap-broker/providers/", mock, newCache())

	seed, err := r.WalletSeed(context.Background(), "swap-broker/wallet-seed", "")
	require.NoError(t, err)
	assert.Equal(t, "8f2a9c", seed)
}

func TestWalletSeed_MissingKeyIsAnError(t *testing.T) {
	mock := &mockProvider{
		secrets: map[string]map[string]string{
			"swap-broker/wallet-seed": {"jwt": "wrong-shape"},
		},
	}
	r := NewResolver(zap.NewNop(), "swap-broker/providers/", mock, newCache())

	_, err := r.WalletSeed(context.Background(), "swap-broker/wallet-seed", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed_hex")
}

func TestWalletSeed_NothingConfigured(t *testing.T) {
	r := NewResolver(zap.NewNop(), "swap-broker/providers/", nil, newCache())

	_, err := r.WalletSeed(context.Background(), "", "")
	assert.Error(t, err)
}

func TestDiscoverConfigured(t *testing.T) {
	mock := &mockProvider{
		secretNames: []string{
			"swap-broker/providers/chainflip",
			"swap-broker/providers/near_intents",
			"swap-broker/providers/nested/ignored",
			"other-service/providers/bebop",
		},
	}
	r := NewResolver(zap.NewNop(), "swap-broker/providers/", mock, newCache())

	slugs, err := r.DiscoverConfigured(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"chainflip", "near_intents"}, slugs)
}

func TestEnvPrefix(t *testing.T) {
	tests := map[model.SwapperName]string{
		model.ChainflipProvider:   "CHAINFLIP",
		model.NearIntentsProvider: "NEAR_INTENTS",
		model.ThorchainProvider:   "THORCHAIN",
		model.ButterSwapProvider:  "BUTTER_SWAP",
		model.BebopProvider:       "BEBOP",
	}
	for name, want := range tests {
		assert.Equal(t, want, envPrefix(name), string(name))
	}
}
