package model

import (
	"github.com/shopspring/decimal"
)

// Quote is the market-rate quote returned by the FX pricing service for a
// (contact, ticker, currency, amount, action) request. The "payment" fields
// describe the crypto side, the "paymentFiat" fields the fiat side.
//
// Known upstream quirk: depending on direction the provider returns either
// amount + fee = total or amount - fee = total. Consumers must pair the two
// sides with min/max instead of assuming one convention.
type Quote struct {
	PaymentRate     decimal.Decimal `json:"paymentRate"`
	PaymentAmount   decimal.Decimal `json:"paymentAmount"`
	PaymentFee      decimal.Decimal `json:"paymentFee"`
	PaymentTotal    decimal.Decimal `json:"paymentTotal"`
	PaymentCurrency string          `json:"paymentCurrency"`

	PaymentFiatRate     decimal.Decimal `json:"paymentFiatRate"`
	PaymentFiatAmount   decimal.Decimal `json:"paymentFiatAmount"`
	PaymentFiatFee      decimal.Decimal `json:"paymentFiatFee"`
	PaymentFiatTotal    decimal.Decimal `json:"paymentFiatTotal"`
	PaymentFiatCurrency string          `json:"paymentFiatCurrency"`

	RateCreated string `json:"rateCreated"`
	RateExpires string `json:"rateExpires"`

	Details QuoteDetails `json:"details"`
}

// QuoteDetails carries the underlying FX chain the provider used to build
// the customer-facing quote. All fee amounts are USD.
type QuoteDetails struct {
	QuoteID string `json:"quoteId"`

	// 1 USD * FiatRate = local fiat, e.g. 0.92 for USD→EUR.
	FiatRate decimal.Decimal `json:"fiatRate"`

	// ExchangeAmount crypto * USDToCryptoExchangeRate = FXTotalUSD.
	USDToCryptoExchangeRate decimal.Decimal `json:"usdToCryptoExchangeRate"`

	FXFeePct         decimal.Decimal `json:"fxFeePct"`
	FXFeeUSD         decimal.Decimal `json:"fxFeeUSD"`
	FXTotalUSD       decimal.Decimal `json:"fxTotalUSD"`
	ExternalFXFeePct decimal.Decimal `json:"externalFXFeePct"`
	ExternalFXFeeUSD decimal.Decimal `json:"externalFXFeeUSD"`
	TxFeePct         decimal.Decimal `json:"txFeePct"`
	TxFeeUSD         decimal.Decimal `json:"txFeeUSD"`

	ExchangeRate   decimal.Decimal `json:"exchangeRate"`
	ExchangeAmount decimal.Decimal `json:"exchangeAmount"`
	Amount         decimal.Decimal `json:"amount"`

	Provider string `json:"provider,omitempty"`
}

// LimitRate is the intermediate result of the limit rate calculator.
// All monetary fields stay arbitrary-precision until the limit trade mapper
// rounds them to the currency's display decimals.
type LimitRate struct {
	RawLimitRate  decimal.Decimal
	UserLimitRate decimal.Decimal

	SourceTotal         decimal.Decimal
	FeeInSourceCurrency decimal.Decimal
	SourceAmount        decimal.Decimal
	SourceCurrency      string

	TargetTotal         decimal.Decimal
	FeeInTargetCurrency decimal.Decimal
	TargetAmount        decimal.Decimal
	TargetCurrency      string

	Fees []Fee
}

// FeeRecord is one percentage fee entry of a contact's fee schedule,
// as returned by the fee schedule provider.
type FeeRecord struct {
	Code   string          `json:"code"`   // e.g. "FX", "ALF"
	Type   string          `json:"type"`   // "PCT"
	Amount decimal.Decimal `json:"amount"` // fraction, e.g. 0.02
}
