package trade

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/miraucorp/trade-service/pkg/model"
)

// QuoteClient fetches market quotes from the FX service.
type QuoteClient interface {
	MarketQuote(ctx context.Context, contactID, ticker, currency string, amount decimal.Decimal, action model.TradeType) (*model.Quote, error)
}

// AccountClient fetches fiat account details.
type AccountClient interface {
	GetAccount(ctx context.Context, accountID, contactID string) (*model.FiatAccount, error)
}

// WalletClient fetches crypto wallet details and pre-validates trade amounts
// against wallet-side limits.
type WalletClient interface {
	GetWallet(ctx context.Context, walletID, contactID, partnerID string) (*model.CryptoWallet, error)
	ValidateAmount(ctx context.Context, trade *model.Trade) error
}

// FeeClient fetches the contact's fee schedule.
type FeeClient interface {
	GetFees(ctx context.Context, contactID string) ([]model.FeeRecord, error)
}

// CommandBus sends commands to the fulfillment and limit-order workers.
type CommandBus interface {
	PublishFulfillTrade(ctx context.Context, tradeID string, isRetry bool, contactID, partnerID string) error
	PublishProcessLimitTrade(ctx context.Context, tradeID string, isRetry bool, contactID, partnerID string) error
	PublishCancelLimitTrade(ctx context.Context, tradeID, contactID, partnerID string) error
	PublishUpdateTradeStatus(ctx context.Context, tradeID string, status model.TradeStatus, contactID, partnerID string) error
}

// Notifier pushes best-effort trade lifecycle notifications to the CRM.
type Notifier interface {
	TradeCreated(ctx context.Context, t *model.Trade)
	TradeCancelRequested(ctx context.Context, t *model.Trade)
}

// CreateTradeParams carries everything needed to price and book a market trade.
type CreateTradeParams struct {
	ContactID string
	PartnerID string
	WalletID  string
	AccountID string

	// Amount is denominated in Currency, which may be either side of the pair.
	Amount   decimal.Decimal
	Currency string
	Action   model.TradeType
}

// CreateLimitTradeParams extends CreateTradeParams with the customer's
// requested limit rate (fiat per crypto unit, fees included).
type CreateLimitTradeParams struct {
	CreateTradeParams
	LimitRate decimal.Decimal
}

// LimitRangeParams identifies the pair and size for a limit rate range query.
type LimitRangeParams struct {
	ContactID string
	PartnerID string
	Ticker    string
	Currency  string
	Amount    decimal.Decimal
	Action    model.TradeType
}

// CreatedTrade is a booked trade plus the quote validity window it was
// priced against.
type CreatedTrade struct {
	Trade         model.Trade
	RateCreatedAt string
	RateExpiresAt string
}

// ListTradesQuery filters the trade listing. Open is a tri-state: nil lists
// market trades, true open limit orders, false settled limit orders.
type ListTradesQuery struct {
	ContactID string
	WalletID  string
	Open      *bool
	StartDate time.Time
	EndDate   time.Time
}
