package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/miraucorp/trade-service/internal/coin"
	"github.com/miraucorp/trade-service/pkg/model"
)

//
// ────────────────────────────────────────────────
//   Mapper – Quote / LimitRate → canonical Trade
// ────────────────────────────────────────────────
//

// Mapper converts raw market quotes and limit-rate computations into
// canonical Trade aggregates.
type Mapper struct {
	coins           *coin.Registry
	limitExpiration time.Duration
}

// NewMapper constructs a Mapper. limitExpirationDays bounds the lifetime of
// limit orders produced by ToLimitTrade.
func NewMapper(coins *coin.Registry, limitExpirationDays int) *Mapper {
	return &Mapper{
		coins:           coins,
		limitExpiration: time.Duration(limitExpirationDays) * 24 * time.Hour,
	}
}

// sideAmounts is one currency side of a quote with amount/total paired off.
type sideAmounts struct {
	amount   decimal.Decimal
	total    decimal.Decimal
	fee      decimal.Decimal
	rate     decimal.Decimal
	currency string
}

// splitSide pairs a quote side's amount and total. The provider returns
// `amount + fee = total` for some directions and `amount - fee = total` for
// others, so the smaller value is always the amount and the larger the total.
func splitSide(amount, total, fee, rate decimal.Decimal, currency string) sideAmounts {
	return sideAmounts{
		amount:   decimal.Min(amount, total),
		total:    decimal.Max(amount, total),
		fee:      fee,
		rate:     rate,
		currency: currency,
	}
}

// ToMarketTrade converts one market quote plus a trade direction into a
// NEW-status Trade. BUY sources fiat (debited from the account) and targets
// crypto (credited to the wallet); SELL is the mirror.
//
// The quote is taken at face value: no sanity pre-checks are performed here,
// malformed quotes surface as malformed trades.
func (m *Mapper) ToMarketTrade(
	tradeID string,
	q model.Quote,
	action model.TradeType,
	contactID, partnerID, walletID, accountID string,
) model.Trade {
	fiat := splitSide(q.PaymentFiatAmount, q.PaymentFiatTotal, q.PaymentFiatFee, q.PaymentFiatRate, q.PaymentFiatCurrency)
	crypto := splitSide(q.PaymentAmount, q.PaymentTotal, q.PaymentFee, q.PaymentRate, q.PaymentCurrency)

	source, target := crypto, fiat
	sourceWallet, targetWallet := walletID, accountID
	rate, inverse := fiat.rate, crypto.rate
	if action == model.TradeTypeBuy {
		source, target = fiat, crypto
		sourceWallet, targetWallet = accountID, walletID
		rate, inverse = crypto.rate, fiat.rate
	}

	return model.Trade{
		TradeID:   tradeID,
		ContactID: contactID,
		PartnerID: partnerID,

		TradeStatus: model.StatusNew,
		TradeType:   action,

		SourceAmount:        source.amount,
		SourceCurrency:      source.currency,
		FeeInSourceCurrency: source.fee,
		SourceTotal:         source.total,
		SourceWalletID:      sourceWallet,

		TargetAmount:        target.amount,
		TargetCurrency:      target.currency,
		FeeInTargetCurrency: target.fee,
		TargetTotal:         target.total,
		TargetWalletID:      targetWallet,

		Rate:        rate,
		InverseRate: inverse,

		Fees: quoteFees(q),
		Fxs:  marketFxs(action, q, fiat, crypto),
	}
}

// marketFxs decomposes the quote's FX chain: always exactly one crypto↔USD
// leg, plus a USD↔local-fiat leg when the fiat currency is not USD.
func marketFxs(action model.TradeType, q model.Quote, fiat, crypto sideAmounts) []model.TradeFx {
	usdAmount := q.Details.FXTotalUSD
	cryptoAmount := q.Details.ExchangeAmount
	cryptoRate := q.Details.USDToCryptoExchangeRate

	provider := q.Details.Provider
	if provider == "" {
		provider = model.ProviderCumberland
	}

	leg := model.TradeFx{
		Provider:      provider,
		QuoteOrActual: "QUOTE",
	}
	if action == model.TradeTypeBuy {
		leg.Type = model.FXFiatCrypto
		leg.SourceAmount, leg.SourceTotal, leg.SourceCurrency = usdAmount, usdAmount, "USD"
		leg.TargetAmount, leg.TargetTotal, leg.TargetCurrency = cryptoAmount, cryptoAmount, crypto.currency
		leg.InverseRate = &cryptoRate
	} else {
		leg.Type = model.FXCryptoFiat
		leg.SourceAmount, leg.SourceTotal, leg.SourceCurrency = cryptoAmount, cryptoAmount, crypto.currency
		leg.TargetAmount, leg.TargetTotal, leg.TargetCurrency = usdAmount, usdAmount, "USD"
		leg.Rate = &cryptoRate
	}

	fxs := []model.TradeFx{leg}
	if fiat.currency == "USD" {
		return fxs
	}

	fiatRate := q.Details.FiatRate
	localAmount := usdToFiat(usdAmount, fiatRate, fiat.currency)

	leg2 := model.TradeFx{
		Type:          model.FXFiatFiat,
		Provider:      model.ProviderMoneycorp,
		QuoteOrActual: "QUOTE",
	}
	if action == model.TradeTypeBuy {
		leg2.SourceAmount, leg2.SourceTotal, leg2.SourceCurrency = localAmount, localAmount, fiat.currency
		leg2.TargetAmount, leg2.TargetTotal, leg2.TargetCurrency = usdAmount, usdAmount, "USD"
		leg2.InverseRate = &fiatRate
	} else {
		leg2.SourceAmount, leg2.SourceTotal, leg2.SourceCurrency = usdAmount, usdAmount, "USD"
		leg2.TargetAmount, leg2.TargetTotal, leg2.TargetCurrency = localAmount, localAmount, fiat.currency
		leg2.Rate = &fiatRate
	}

	return append(fxs, leg2)
}

// usdToFiat converts a USD value into local fiat at the quoted fiat rate.
// JPY has no minor unit, every other supported fiat rounds to cents.
func usdToFiat(valueInUSD, rate decimal.Decimal, currency string) decimal.Decimal {
	prec := int32(2)
	if currency == "JPY" {
		prec = 0
	}
	return valueInUSD.Mul(rate).Round(prec)
}
