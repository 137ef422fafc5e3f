package secrets

import "context"

// Provider reads the downstream platform-service credential secrets.
// AWS Secrets Manager is the only implementation today; Static in
// internal/secrets covers environments without it.
type Provider interface {
	// GetSecret retrieves a secret by key/path and returns a key-value map.
	GetSecret(ctx context.Context, key string) (map[string]string, error)

	// ListSecrets returns the names of all secrets whose name matches the given prefix.
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}
