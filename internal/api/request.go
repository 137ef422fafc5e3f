package api

import (
	"github.com/shopspring/decimal"
)

// CreateTradeRequest is the payload to book a market trade. Amount may be
// denominated in either side of the pair; Currency says which.
type CreateTradeRequest struct {
	WalletID  string          `json:"walletId" example:"0c7cd907-bc9b-4d24-a7b6-6c0c110746e1"`
	AccountID string          `json:"accountId" example:"7d8b8b1c-52f8-4d9e-a95a-5f8ec350bb1f"`
	Amount    decimal.Decimal `json:"amount" example:"1000.00"`
	Currency  string          `json:"currency" example:"USD"`
	Action    string          `json:"action" example:"BUY"`
}

// CreateLimitTradeRequest is the payload to price or book a limit order.
// LimitRate is the customer-facing rate in fiat per crypto unit, fees
// included.
type CreateLimitTradeRequest struct {
	CreateTradeRequest
	LimitRate decimal.Decimal `json:"limitRate" example:"40000.00"`
}

// LimitRangeRequest asks for the accepted limit rate interval on a pair.
type LimitRangeRequest struct {
	Ticker   string          `json:"ticker" example:"BTC_USD"`
	Currency string          `json:"currency" example:"USD"`
	Amount   decimal.Decimal `json:"amount" example:"1000.00"`
	Action   string          `json:"action" example:"BUY"`
}

// UpdateTradeStatusRequest forces a trade into a terminal status.
type UpdateTradeStatusRequest struct {
	TradeStatus string `json:"tradeStatus" example:"CREDITED"`
}
