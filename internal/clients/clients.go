// Package clients holds the HTTP clients for the downstream platform
// services the pricing engine depends on: the FX quote provider, the fiat
// account service, the crypto wallet service and the fee schedule service.
package clients

import (
	"context"

	pkgsecrets "github.com/miraucorp/trade-service/pkg/secrets"
)

// CredentialSource resolves the credentials (API key, base URL override) of
// one downstream service.
type CredentialSource interface {
	Resolve(ctx context.Context, service string) (pkgsecrets.ServiceCredentials, error)
}

// envelope is the standard response wrapper of the platform services.
type envelope[T any] struct {
	Data T `json:"data"`
}
