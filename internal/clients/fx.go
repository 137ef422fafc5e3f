package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/miraucorp/trade-service/internal/httpclient"
	"github.com/miraucorp/trade-service/pkg/model"
)

const fxServiceName = "fx-service"

// FXClient fetches market quotes from the FX pricing service.
type FXClient struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	creds   CredentialSource
	baseURL string
}

// NewFXClient constructs an FXClient. baseURL is the default endpoint; a
// base URL from the resolved credentials takes precedence.
func NewFXClient(logger *zap.Logger, exec *httpclient.Executor, creds CredentialSource, baseURL string) *FXClient {
	return &FXClient{
		logger:  logger,
		exec:    exec,
		creds:   creds,
		baseURL: baseURL,
	}
}

type marketQuoteRequest struct {
	Ticker   string          `json:"ticker"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Action   model.TradeType `json:"action"`
}

// MarketQuote prices one conversion for the contact: amount of currency,
// traded on ticker in the given direction.
func (c *FXClient) MarketQuote(ctx context.Context, contactID, ticker, currency string, amount decimal.Decimal, action model.TradeType) (*model.Quote, error) {
	cred, err := c.creds.Resolve(ctx, fxServiceName)
	if err != nil {
		return nil, err
	}
	base := cred.BaseURL
	if base == "" {
		base = c.baseURL
	}

	body, err := json.Marshal(marketQuoteRequest{
		Ticker:   ticker,
		Currency: currency,
		Amount:   amount,
		Action:   action,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/internal/crypto/trade/rate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build market quote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("contactId", contactID)
	if cred.APIKey != "" {
		req.Header.Set("x-api-key", cred.APIKey)
	}

	var resp envelope[model.Quote]
	if err := c.exec.DoJSON(ctx, req, fxServiceName, &resp); err != nil {
		c.logger.Warn("fx.market_quote_failed",
			zap.String("ticker", ticker),
			zap.String("action", string(action)),
			zap.Error(err))
		return nil, err
	}
	return &resp.Data, nil
}
