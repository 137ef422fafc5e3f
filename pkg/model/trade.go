package model

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/miraucorp/trade-service/pkg/apperr"
)

// TradeType is the direction of a conversion: BUY moves fiat into crypto,
// SELL moves crypto into fiat.
type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

// ParseTradeType validates a raw action string.
func ParseTradeType(s string) (TradeType, error) {
	switch TradeType(s) {
	case TradeTypeBuy:
		return TradeTypeBuy, nil
	case TradeTypeSell:
		return TradeTypeSell, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidAction, s)
}

// ErrInvalidAction rejects actions outside BUY/SELL.
var ErrInvalidAction = apperr.New(http.StatusBadRequest, "invalid action")

// TradeStatus is the internal lifecycle status owned by the fulfillment worker.
type TradeStatus string

const (
	StatusNew                 TradeStatus = "NEW"
	StatusDebitWaitingConf    TradeStatus = "DEBIT_WAITING_CONF"
	StatusDebited             TradeStatus = "DEBITED"
	StatusOrderOpened         TradeStatus = "ORDER_OPENED"
	StatusOrderClosed         TradeStatus = "ORDER_CLOSED"
	StatusExecuted            TradeStatus = "EXECUTED"
	StatusCreditWaitingConf   TradeStatus = "CREDIT_WAITING_CONF"
	StatusCredited            TradeStatus = "CREDITED"
	StatusRefundedWaitingConf TradeStatus = "REFUNDED_WAITING_CONF"
	StatusRefunded            TradeStatus = "REFUNDED"
	StatusCompleted           TradeStatus = "COMPLETED"
	StatusFailed              TradeStatus = "FAILED"
)

// TradeSubstatus qualifies a limit order that is being unwound.
type TradeSubstatus string

const (
	SubstatusNone      TradeSubstatus = ""
	SubstatusCancelled TradeSubstatus = "CANCELLED"
	SubstatusExpired   TradeSubstatus = "EXPIRED"
)

// OrderType distinguishes immediate market conversions from resting limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// FeeType enumerates the fee taxonomy:
// FX = foreign-exchange margin, TXN = transaction fee, BCN = external/broker fee,
// ALF = asset liquidation fee, PRV = limit-order provider margin.
type FeeType string

const (
	FeeFX  FeeType = "FX"
	FeeTXN FeeType = "TXN"
	FeeBCN FeeType = "BCN"
	FeeALF FeeType = "ALF"
	FeePRV FeeType = "PRV"
)

// Fee is one component of a trade's fee stack. Amounts are always expressed
// in USD regardless of the trade currencies.
type Fee struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Type     FeeType         `json:"type"`
	Pct      decimal.Decimal `json:"pct"`
}

// FXType is the kind of a single conversion hop.
type FXType string

const (
	FXFiatCrypto FXType = "FIAT_CRYPTO"
	FXCryptoFiat FXType = "CRYPTO_FIAT"
	FXFiatFiat   FXType = "FIAT_FIAT"
)

// FX providers.
const (
	ProviderCumberland = "CUMBERLAND"
	ProviderMoneycorp  = "MONEYCORP"
	ProviderKraken     = "KRAKEN"
)

// TradeFx is one hop of a multi-currency FX conversion chain.
// Market legs populate exactly one of Rate/InverseRate depending on the
// trade action; limit legs carry both.
type TradeFx struct {
	Type          FXType `json:"type"`
	Provider      string `json:"provider"`
	QuoteOrActual string `json:"quoteOrActual"`

	SourceAmount   decimal.Decimal `json:"sourceAmount"`
	SourceCurrency string          `json:"sourceCurrency"`
	SourceTotal    decimal.Decimal `json:"sourceTotal"`

	TargetAmount   decimal.Decimal `json:"targetAmount"`
	TargetCurrency string          `json:"targetCurrency"`
	TargetTotal    decimal.Decimal `json:"targetTotal"`

	Rate        *decimal.Decimal `json:"rate,omitempty"`
	InverseRate *decimal.Decimal `json:"inverseRate,omitempty"`

	// Limit-order legs only.
	OrderType      OrderType        `json:"orderType,omitempty"`
	VolumeExecuted *decimal.Decimal `json:"volumeExecuted,omitempty"`
	CreatedAt      time.Time        `json:"createdAt,omitzero"`
	ExpiresAt      time.Time        `json:"expiresAt,omitzero"`
}

// Trade is the canonical aggregate produced by the pricing engine.
// Invariants: sourceAmount + feeInSourceCurrency = sourceTotal and
// targetTotal - feeInTargetCurrency = targetAmount (the target-side fee is
// already netted out of targetAmount).
type Trade struct {
	TradeID   string `json:"tradeId"`
	ContactID string `json:"contactId"`
	PartnerID string `json:"partnerId"`

	TradeType      TradeType      `json:"tradeType"`
	TradeStatus    TradeStatus    `json:"tradeStatus"`
	TradeSubstatus TradeSubstatus `json:"tradeSubstatus,omitempty"`
	TradeError     string         `json:"tradeError,omitempty"`

	SourceAmount        decimal.Decimal `json:"sourceAmount"`
	SourceCurrency      string          `json:"sourceCurrency"`
	FeeInSourceCurrency decimal.Decimal `json:"feeInSourceCurrency"`
	SourceTotal         decimal.Decimal `json:"sourceTotal"`
	SourceWalletID      string          `json:"sourceWalletId"`

	TargetAmount        decimal.Decimal `json:"targetAmount"`
	TargetCurrency      string          `json:"targetCurrency"`
	FeeInTargetCurrency decimal.Decimal `json:"feeInTargetCurrency"`
	TargetTotal         decimal.Decimal `json:"targetTotal"`
	TargetWalletID      string          `json:"targetWalletId"`

	Rate        decimal.Decimal `json:"rate"`
	InverseRate decimal.Decimal `json:"inverseRate"`

	Fees []Fee     `json:"fees"`
	Fxs  []TradeFx `json:"fxs"`

	// Ledger transaction references, written by the fulfillment worker.
	DebitTxID  string `json:"debitTxId,omitempty"`
	CreditTxID string `json:"creditTxId,omitempty"`
	RefundTxID string `json:"refundTxId,omitempty"`

	// Limit-order metadata.
	OrderType   OrderType `json:"orderType,omitempty"`
	ExecutedPct string    `json:"executedPct,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
}

// IsLimit reports whether the trade is a resting limit order.
func (t *Trade) IsLimit() bool { return t.OrderType == OrderTypeLimit }
