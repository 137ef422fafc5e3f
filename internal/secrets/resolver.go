package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	pkgsecrets "github.com/miraucorp/trade-service/pkg/secrets"
)

// AWSResolver resolves downstream service credentials from AWS Secrets
// Manager, caching results locally to reduce API calls.
//
// Secret naming convention: {env}/trade-service/{service}
// Secret JSON format:       {"api_key": "...", "base_url": "https://..."}
type AWSResolver struct {
	logger   *zap.Logger
	env      string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[pkgsecrets.ServiceCredentials]
}

// NewAWSResolver constructs a credentials resolver over the given provider.
func NewAWSResolver(
	logger *zap.Logger,
	env string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[pkgsecrets.ServiceCredentials],
) *AWSResolver {
	return &AWSResolver{
		logger:   logger,
		env:      env,
		provider: provider,
		cache:    cache,
	}
}

// secretName builds the AWS Secrets Manager key for a downstream service.
func (r *AWSResolver) secretName(service string) string {
	return strings.ToLower(fmt.Sprintf("%s/trade-service/%s", r.env, service))
}

// Resolve fetches or caches the credentials for a downstream service.
// A missing API key is allowed: internal services behind the mesh do not
// all require one.
func (r *AWSResolver) Resolve(ctx context.Context, service string) (pkgsecrets.ServiceCredentials, error) {
	key := strings.ToLower(service)
	if cred, ok := r.cache.Get(key); ok {
		return cred, nil
	}

	secretName := r.secretName(service)
	secretMap, err := r.provider.GetSecret(ctx, secretName)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", secretName),
			zap.Error(err))
		return pkgsecrets.ServiceCredentials{}, fmt.Errorf("resolve credentials for %q: %w", service, err)
	}

	cred := pkgsecrets.ServiceCredentials{
		BaseURL: secretMap["base_url"],
		APIKey:  secretMap["api_key"],
	}

	r.cache.Put(key, cred)

	r.logger.Info("aws.service_credentials_resolved",
		zap.String("service", service))
	return cred, nil
}

// Static is a CredentialSource backed by fixed values, for environments
// without Secrets Manager (local dev, tests).
type Static map[string]pkgsecrets.ServiceCredentials

func (s Static) Resolve(_ context.Context, service string) (pkgsecrets.ServiceCredentials, error) {
	return s[strings.ToLower(service)], nil
}
