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

const walletServiceName = "wallet-service"

// WalletClient fetches crypto wallets from the wallet service and runs its
// trade amount validation.
type WalletClient struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	creds   CredentialSource
	baseURL string
}

func NewWalletClient(logger *zap.Logger, exec *httpclient.Executor, creds CredentialSource, baseURL string) *WalletClient {
	return &WalletClient{
		logger:  logger,
		exec:    exec,
		creds:   creds,
		baseURL: baseURL,
	}
}

// GetWallet fetches the contact's crypto wallet.
func (c *WalletClient) GetWallet(ctx context.Context, walletID, contactID, partnerID string) (*model.CryptoWallet, error) {
	cred, err := c.creds.Resolve(ctx, walletServiceName)
	if err != nil {
		return nil, err
	}
	base := cred.BaseURL
	if base == "" {
		base = c.baseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/wallets/"+walletID, nil)
	if err != nil {
		return nil, fmt.Errorf("build wallet request: %w", err)
	}
	req.Header.Set("contactId", contactID)
	req.Header.Set("partnerId", partnerID)
	if cred.APIKey != "" {
		req.Header.Set("x-api-key", cred.APIKey)
	}

	var resp envelope[model.CryptoWallet]
	if err := c.exec.DoJSON(ctx, req, walletServiceName, &resp); err != nil {
		c.logger.Warn("wallet.get_failed",
			zap.String("wallet_id", walletID),
			zap.Error(err))
		return nil, err
	}
	return &resp.Data, nil
}

type validateTradeRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Ticker   string          `json:"ticker"`
}

// ValidateAmount asks the wallet service to validate the crypto amount of
// the trade against its min/max trade bounds. BUY validates what the
// customer receives, SELL what the customer sends.
func (c *WalletClient) ValidateAmount(ctx context.Context, trade *model.Trade) error {
	cred, err := c.creds.Resolve(ctx, walletServiceName)
	if err != nil {
		return err
	}
	base := cred.BaseURL
	if base == "" {
		base = c.baseURL
	}

	v := validateTradeRequest{
		Amount:   trade.SourceTotal,
		Currency: trade.SourceCurrency,
		Ticker:   trade.SourceCurrency + "_USD",
	}
	if trade.TradeType == model.TradeTypeBuy {
		v = validateTradeRequest{
			Amount:   trade.TargetAmount,
			Currency: trade.TargetCurrency,
			Ticker:   trade.TargetCurrency + "_USD",
		}
	}

	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/validatetrade", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build validate trade request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cred.APIKey != "" {
		req.Header.Set("x-api-key", cred.APIKey)
	}

	return c.exec.DoJSON(ctx, req, walletServiceName, nil)
}
