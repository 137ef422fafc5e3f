package clients

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/miraucorp/trade-service/internal/httpclient"
	"github.com/miraucorp/trade-service/internal/metrics"
	"github.com/miraucorp/trade-service/pkg/model"
	pkgsecrets "github.com/miraucorp/trade-service/pkg/secrets"
)

const feeServiceName = "fee-service"

// FeeClient fetches a contact's fee schedule from the fee service. Schedules
// change rarely, so results are cached in-memory per contact.
type FeeClient struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	creds   CredentialSource
	baseURL string
	cache   *pkgsecrets.Cache[[]model.FeeRecord]
}

func NewFeeClient(logger *zap.Logger, exec *httpclient.Executor, creds CredentialSource, baseURL string, cache *pkgsecrets.Cache[[]model.FeeRecord]) *FeeClient {
	return &FeeClient{
		logger:  logger,
		exec:    exec,
		creds:   creds,
		baseURL: baseURL,
		cache:   cache,
	}
}

// GetFees returns the fee records of the contact's active membership plan.
func (c *FeeClient) GetFees(ctx context.Context, contactID string) ([]model.FeeRecord, error) {
	if records, ok := c.cache.Get(contactID); ok {
		metrics.IncCacheHit("hit")
		return records, nil
	}
	metrics.IncCacheHit("miss")

	cred, err := c.creds.Resolve(ctx, feeServiceName)
	if err != nil {
		return nil, err
	}
	base := cred.BaseURL
	if base == "" {
		base = c.baseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/fees/"+contactID, nil)
	if err != nil {
		return nil, fmt.Errorf("build fee request: %w", err)
	}
	req.Header.Set("contactId", contactID)
	if cred.APIKey != "" {
		req.Header.Set("x-api-key", cred.APIKey)
	}

	var resp envelope[[]model.FeeRecord]
	if err := c.exec.DoJSON(ctx, req, feeServiceName, &resp); err != nil {
		c.logger.Warn("fees.get_failed",
			zap.String("contact_id", contactID),
			zap.Error(err))
		return nil, err
	}

	c.cache.Put(contactID, resp.Data)
	return resp.Data, nil
}
