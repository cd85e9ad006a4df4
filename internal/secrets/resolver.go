package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/Checker-Finance/swap-broker/internal/metrics"
	"github.com/Checker-Finance/swap-broker/pkg/model"
	pkgsecrets "github.com/Checker-Finance/swap-broker/pkg/secrets"
)

// ProviderCredentials is the per-swapper API configuration. Public
// endpoints (thornode, mayanode) leave every field empty; that is a
// valid resolution.
type ProviderCredentials struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	JWT     string `json:"jwt"`
}

// Resolver resolves per-provider credentials, preferring AWS Secrets
// Manager and falling back to environment variables so dev instances
// run without AWS access. Resolutions are TTL-cached.
//
// Secret naming convention: {prefix}{provider_slug}, e.g.
// swap-broker/providers/near_intents with a JSON body like
// {"base_url": "...", "api_key": "...", "jwt": "..."}.
type Resolver struct {
	logger   *zap.Logger
	prefix   string
	provider pkgsecrets.Provider // nil: env fallback only
	cache    *pkgsecrets.Cache[ProviderCredentials]
}

// NewResolver constructs a provider credential resolver.
func NewResolver(logger *zap.Logger, prefix string, provider pkgsecrets.Provider, cache *pkgsecrets.Cache[ProviderCredentials]) *Resolver {
	return &Resolver{
		logger:   logger,
		prefix:   strings.ToLower(prefix),
		provider: provider,
		cache:    cache,
	}
}

// Credentials resolves the API configuration for one swapper. Zero-value
// credentials are returned when nothing is configured; callers fall back
// to their compiled-in endpoints.
func (r *Resolver) Credentials(ctx context.Context, swapper model.SwapperName) ProviderCredentials {
	key := secretSlug(swapper)

	if creds, ok := r.cache.Get(key); ok {
		metrics.IncCacheHit("hit")
		return creds
	}
	metrics.IncCacheHit("miss")

	if r.provider != nil {
		name := r.prefix + key
		secretMap, err := r.provider.GetSecret(ctx, name)
		if err == nil {
			creds := credentialsFromMap(secretMap)
			r.cache.Put(key, creds)
			r.logger.Info("aws.provider_config_resolved",
				zap.String("provider", string(swapper)))
			return creds
		}
		// Uncached so the next resolution retries AWS instead of
		// pinning the fallback for the whole TTL.
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", name),
			zap.Error(err))
		return credentialsFromEnv(swapper)
	}

	creds := credentialsFromEnv(swapper)
	r.cache.Put(key, creds)
	return creds
}

// WalletSeed resolves the service wallet master seed. An explicit
// WALLET_SEED_HEX wins so dev instances never touch AWS; otherwise the
// secret must resolve, because signing with a different seed than the
// one the deposit addresses came from would strand funds.
func (r *Resolver) WalletSeed(ctx context.Context, secretID, devHex string) (string, error) {
	if devHex != "" {
		r.logger.Warn("wallet.seed_from_env")
		return devHex, nil
	}
	if r.provider == nil || secretID == "" {
		return "", fmt.Errorf("wallet seed not configured")
	}

	secretMap, err := r.provider.GetSecret(ctx, secretID)
	if err != nil {
		return "", fmt.Errorf("resolve wallet seed: %w", err)
	}
	seed := secretMap["seed_hex"]
	if seed == "" {
		return "", fmt.Errorf("wallet seed secret %q missing seed_hex", secretID)
	}
	return seed, nil
}

// DiscoverConfigured lists the provider slugs present under the secret
// prefix. Startup logging uses it to show which integrations carry
// credentials.
func (r *Resolver) DiscoverConfigured(ctx context.Context) ([]string, error) {
	if r.provider == nil {
		return nil, nil
	}

	names, err := r.provider.ListSecrets(ctx, r.prefix)
	if err != nil {
		return nil, fmt.Errorf("discover provider secrets: %w", err)
	}

	var slugs []string
	for _, name := range names {
		trimmed := strings.TrimPrefix(strings.ToLower(name), r.prefix)
		if trimmed != "" && !strings.Contains(trimmed, "/") {
			slugs = append(slugs, trimmed)
		}
	}

	r.logger.Info("aws.providers_discovered",
		zap.Int("count", len(slugs)),
		zap.Strings("providers", slugs),
	)
	return slugs, nil
}

func credentialsFromMap(m map[string]string) ProviderCredentials {
	return ProviderCredentials{
		BaseURL: m["base_url"],
		APIKey:  m["api_key"],
		JWT:     m["jwt"],
	}
}

// credentialsFromEnv reads {PREFIX}_API_URL / _API_KEY / _JWT, e.g.
// NEAR_INTENTS_JWT for NearIntentsProvider.
func credentialsFromEnv(swapper model.SwapperName) ProviderCredentials {
	prefix := envPrefix(swapper)
	return ProviderCredentials{
		BaseURL: os.Getenv(prefix + "_API_URL"),
		APIKey:  os.Getenv(prefix + "_API_KEY"),
		JWT:     os.Getenv(prefix + "_JWT"),
	}
}

// envPrefix converts ButterSwapProvider to BUTTER_SWAP.
func envPrefix(name model.SwapperName) string {
	base := strings.TrimSuffix(string(name), "Provider")
	var b strings.Builder
	for i, r := range base {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// secretSlug is the lower-cased env prefix: chainflip, near_intents.
func secretSlug(name model.SwapperName) string {
	return strings.ToLower(envPrefix(name))
}
