package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/miraucorp/trade-service/internal/pricing"
	"github.com/miraucorp/trade-service/internal/trade"
	"github.com/miraucorp/trade-service/pkg/model"
)

// TradeCreatedResponse is the booking confirmation. The payment fields are
// denominated in the side the customer pays with: the source side on SELL
// (crypto leaves the wallet), the target side on BUY (crypto arrives).
type TradeCreatedResponse struct {
	PaymentID     string          `json:"paymentId"`
	PaymentRate   decimal.Decimal `json:"paymentRate"`
	PaymentAmount decimal.Decimal `json:"paymentAmount"`
	PaymentFee    decimal.Decimal `json:"paymentFee"`
	PaymentTotal  decimal.Decimal `json:"paymentTotal"`
	RateCreatedAt string          `json:"rateCreatedAt,omitempty"`
	RateExpiresAt string          `json:"rateExpiresAt,omitempty"`
}

func toTradeCreatedResponse(ct *trade.CreatedTrade) TradeCreatedResponse {
	t := ct.Trade
	resp := TradeCreatedResponse{
		PaymentID:     t.TradeID,
		RateCreatedAt: ct.RateCreatedAt,
		RateExpiresAt: ct.RateExpiresAt,
	}
	if t.TradeType == model.TradeTypeSell {
		resp.PaymentRate = t.Rate
		resp.PaymentAmount = t.SourceAmount
		resp.PaymentFee = t.FeeInSourceCurrency
		resp.PaymentTotal = t.SourceTotal
	} else {
		resp.PaymentRate = t.InverseRate
		resp.PaymentAmount = t.TargetAmount
		resp.PaymentFee = t.FeeInTargetCurrency
		resp.PaymentTotal = t.TargetTotal
	}
	return resp
}

// ContactTradeResponse is the contact-facing view of a trade. SourceAmount is
// the gross debit (fees included) and Fee repeats the source-side fee, so the
// customer sees what left the account and why.
type ContactTradeResponse struct {
	TradeID     string `json:"tradeId"`
	TradeType   string `json:"tradeType"`
	OrderType   string `json:"orderType,omitempty"`
	ExecutedPct string `json:"executedPct,omitempty"`

	SourceAmount   decimal.Decimal `json:"sourceAmount"`
	SourceCurrency string          `json:"sourceCurrency"`
	TargetAmount   decimal.Decimal `json:"targetAmount"`
	TargetCurrency string          `json:"targetCurrency"`

	Rate        decimal.Decimal `json:"rate"`
	InverseRate decimal.Decimal `json:"inverseRate"`

	Fee         decimal.Decimal `json:"fee"`
	FeeCurrency string          `json:"feeCurrency"`

	DebitTxID  string `json:"debitTxId,omitempty"`
	CreditTxID string `json:"creditTxId,omitempty"`
	RefundTxID string `json:"refundTxId,omitempty"`

	TradeStatus string     `json:"tradeStatus"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

func toContactTradeResponse(t *model.Trade) ContactTradeResponse {
	resp := ContactTradeResponse{
		TradeID:   t.TradeID,
		TradeType: string(t.TradeType),
		OrderType: string(t.OrderType),

		SourceAmount:   t.SourceTotal,
		SourceCurrency: t.SourceCurrency,
		TargetAmount:   t.TargetAmount,
		TargetCurrency: t.TargetCurrency,

		Rate:        t.Rate,
		InverseRate: t.InverseRate,

		Fee:         t.FeeInSourceCurrency,
		FeeCurrency: t.SourceCurrency,

		DebitTxID:  t.DebitTxID,
		CreditTxID: t.CreditTxID,
		RefundTxID: t.RefundTxID,

		TradeStatus: pricing.DisplayStatus(t),
		CreatedAt:   t.CreatedAt,
	}
	if t.IsLimit() {
		resp.ExecutedPct = t.ExecutedPct
		if !t.ExpiresAt.IsZero() {
			expires := t.ExpiresAt
			resp.ExpiresAt = &expires
		}
	}
	return resp
}

func toContactTradeResponses(trades []model.Trade) []ContactTradeResponse {
	out := make([]ContactTradeResponse, 0, len(trades))
	for i := range trades {
		out = append(out, toContactTradeResponse(&trades[i]))
	}
	return out
}

// LimitRangeResponse is the accepted limit rate interval: NearRate sits just
// off the market rate, FarRate is the widest accepted deviation.
type LimitRangeResponse struct {
	NearRate decimal.Decimal `json:"nearRate"`
	FarRate  decimal.Decimal `json:"farRate"`
}
