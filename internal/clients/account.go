package clients

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/miraucorp/trade-service/internal/httpclient"
	"github.com/miraucorp/trade-service/pkg/model"
)

const accountServiceName = "account-service"

// AccountClient fetches fiat accounts from the account service.
type AccountClient struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	creds   CredentialSource
	baseURL string
}

func NewAccountClient(logger *zap.Logger, exec *httpclient.Executor, creds CredentialSource, baseURL string) *AccountClient {
	return &AccountClient{
		logger:  logger,
		exec:    exec,
		creds:   creds,
		baseURL: baseURL,
	}
}

// GetAccount fetches the contact's fiat account.
func (c *AccountClient) GetAccount(ctx context.Context, accountID, contactID string) (*model.FiatAccount, error) {
	cred, err := c.creds.Resolve(ctx, accountServiceName)
	if err != nil {
		return nil, err
	}
	base := cred.BaseURL
	if base == "" {
		base = c.baseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/details/"+accountID, nil)
	if err != nil {
		return nil, fmt.Errorf("build account request: %w", err)
	}
	req.Header.Set("contactId", contactID)
	if cred.APIKey != "" {
		req.Header.Set("x-api-key", cred.APIKey)
	}

	var resp envelope[model.FiatAccount]
	if err := c.exec.DoJSON(ctx, req, accountServiceName, &resp); err != nil {
		c.logger.Warn("account.get_failed",
			zap.String("account_id", accountID),
			zap.Error(err))
		return nil, err
	}
	return &resp.Data, nil
}
