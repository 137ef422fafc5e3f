package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miraucorp/trade-service/internal/coin"
	"github.com/miraucorp/trade-service/pkg/model"
)

// tbtcEurQuote is a TBTC/EUR quote as the upstream pricing service returns
// it: crypto on the "payment" side, fiat on the "paymentFiat" side, and the
// USD decomposition in details.
func tbtcEurQuote() model.Quote {
	return model.Quote{
		PaymentRate:     dec("0.00008217"),
		PaymentAmount:   dec("0.00080546"),
		PaymentFee:      dec("0.00001627"),
		PaymentTotal:    dec("0.00082173"),
		PaymentCurrency: "TBTC",

		PaymentFiatRate:     dec("12169.437264000002"),
		PaymentFiatAmount:   dec("9.8"),
		PaymentFiatFee:      dec("0.2"),
		PaymentFiatTotal:    dec("10"),
		PaymentFiatCurrency: "EUR",

		Details: model.QuoteDetails{
			FiatRate:                dec("0.92"),
			USDToCryptoExchangeRate: dec("13161.84"),
			FXFeePct:                dec("0.005"),
			FXFeeUSD:                dec("0.05"),
			FXTotalUSD:              dec("10.87"),
			TxFeePct:                dec("0.0198"),
			TxFeeUSD:                dec("0.22"),
			ExchangeAmount:          dec("0.00082584"),
		},
	}
}

func newTestMapper() *Mapper {
	return NewMapper(coin.NewRegistry(true), 15)
}

func TestToMarketTradeSell(t *testing.T) {
	m := newTestMapper()

	trade := m.ToMarketTrade("t-id", tbtcEurQuote(), model.TradeTypeSell, "c-id", "p-id", "wall-id", "acc-id")

	assert.Equal(t, model.StatusNew, trade.TradeStatus)
	assert.Equal(t, model.TradeTypeSell, trade.TradeType)

	// TBTC -> EUR: the customer sends crypto from their wallet.
	assert.Equal(t, "wall-id", trade.SourceWalletID)
	assert.Equal(t, "TBTC", trade.SourceCurrency)
	assert.Equal(t, "0.00080546", trade.SourceAmount.String())
	assert.Equal(t, "0.00001627", trade.FeeInSourceCurrency.String())
	assert.Equal(t, "0.00082173", trade.SourceTotal.String())
	assert.Equal(t, "12169.437264000002", trade.Rate.String())

	assert.Equal(t, "acc-id", trade.TargetWalletID)
	assert.Equal(t, "EUR", trade.TargetCurrency)
	assert.Equal(t, "9.8", trade.TargetAmount.String())
	assert.Equal(t, "0.2", trade.FeeInTargetCurrency.String())
	assert.Equal(t, "10", trade.TargetTotal.String())
	assert.Equal(t, "0.00008217", trade.InverseRate.String())

	assert.Equal(t, []model.Fee{
		{Amount: dec("0.05"), Currency: "USD", Type: model.FeeFX, Pct: dec("0.005")},
		{Amount: dec("0.22"), Currency: "USD", Type: model.FeeTXN, Pct: dec("0.0198")},
	}, trade.Fees)

	require.Len(t, trade.Fxs, 2)

	// Leg 1: TBTC -> USD at the crypto venue.
	leg := trade.Fxs[0]
	assert.Equal(t, model.FXCryptoFiat, leg.Type)
	assert.Equal(t, model.ProviderCumberland, leg.Provider)
	assert.Equal(t, "QUOTE", leg.QuoteOrActual)
	assert.Equal(t, "TBTC", leg.SourceCurrency)
	assert.Equal(t, "0.00082584", leg.SourceAmount.String())
	assert.Equal(t, "0.00082584", leg.SourceTotal.String())
	assert.Equal(t, "USD", leg.TargetCurrency)
	assert.Equal(t, "10.87", leg.TargetAmount.String())
	assert.Equal(t, "10.87", leg.TargetTotal.String())
	require.NotNil(t, leg.Rate)
	assert.Equal(t, "13161.84", leg.Rate.String())
	assert.Nil(t, leg.InverseRate)

	// Leg 2: USD -> EUR at the fiat broker.
	leg = trade.Fxs[1]
	assert.Equal(t, model.FXFiatFiat, leg.Type)
	assert.Equal(t, model.ProviderMoneycorp, leg.Provider)
	assert.Equal(t, "USD", leg.SourceCurrency)
	assert.Equal(t, "10.87", leg.SourceAmount.String())
	assert.Equal(t, "EUR", leg.TargetCurrency)
	assert.Equal(t, "10", leg.TargetAmount.String())
	assert.Equal(t, "10", leg.TargetTotal.String())
	require.NotNil(t, leg.Rate)
	assert.Equal(t, "0.92", leg.Rate.String())
	assert.Nil(t, leg.InverseRate)
}

func TestToMarketTradeBuy(t *testing.T) {
	m := newTestMapper()

	trade := m.ToMarketTrade("t-id", tbtcEurQuote(), model.TradeTypeBuy, "c-id", "p-id", "wall-id", "acc-id")

	assert.Equal(t, model.TradeTypeBuy, trade.TradeType)

	// EUR -> TBTC: the customer is debited from their fiat account.
	assert.Equal(t, "acc-id", trade.SourceWalletID)
	assert.Equal(t, "EUR", trade.SourceCurrency)
	assert.Equal(t, "9.8", trade.SourceAmount.String())
	assert.Equal(t, "0.2", trade.FeeInSourceCurrency.String())
	assert.Equal(t, "10", trade.SourceTotal.String())
	assert.Equal(t, "0.00008217", trade.Rate.String())

	assert.Equal(t, "wall-id", trade.TargetWalletID)
	assert.Equal(t, "TBTC", trade.TargetCurrency)
	assert.Equal(t, "0.00080546", trade.TargetAmount.String())
	assert.Equal(t, "0.00001627", trade.FeeInTargetCurrency.String())
	assert.Equal(t, "0.00082173", trade.TargetTotal.String())
	assert.Equal(t, "12169.437264000002", trade.InverseRate.String())

	require.Len(t, trade.Fxs, 2)

	// Leg 1: USD -> TBTC, rate carried on the inverse side.
	leg := trade.Fxs[0]
	assert.Equal(t, model.FXFiatCrypto, leg.Type)
	assert.Equal(t, "USD", leg.SourceCurrency)
	assert.Equal(t, "10.87", leg.SourceAmount.String())
	assert.Equal(t, "TBTC", leg.TargetCurrency)
	assert.Equal(t, "0.00082584", leg.TargetAmount.String())
	assert.Nil(t, leg.Rate)
	require.NotNil(t, leg.InverseRate)
	assert.Equal(t, "13161.84", leg.InverseRate.String())

	// Leg 2: EUR -> USD.
	leg = trade.Fxs[1]
	assert.Equal(t, model.FXFiatFiat, leg.Type)
	assert.Equal(t, "EUR", leg.SourceCurrency)
	assert.Equal(t, "10", leg.SourceAmount.String())
	assert.Equal(t, "USD", leg.TargetCurrency)
	assert.Equal(t, "10.87", leg.TargetAmount.String())
	assert.Nil(t, leg.Rate)
	require.NotNil(t, leg.InverseRate)
	assert.Equal(t, "0.92", leg.InverseRate.String())
}

func TestToMarketTradeUSDSingleLeg(t *testing.T) {
	m := NewMapper(coin.NewRegistry(false), 15)

	// BTC -> USD with only an FX fee: the fiat-fiat leg and zero-amount fee
	// entries must not appear.
	q := model.Quote{
		PaymentRate:     dec("0.00006108"),
		PaymentAmount:   dec("0.5"),
		PaymentFee:      dec("0"),
		PaymentTotal:    dec("0.5"),
		PaymentCurrency: "BTC",

		PaymentFiatRate:     dec("16370.625549999999"),
		PaymentFiatAmount:   dec("8185.31"),
		PaymentFiatFee:      dec("0"),
		PaymentFiatTotal:    dec("8185.31"),
		PaymentFiatCurrency: "USD",

		Details: model.QuoteDetails{
			USDToCryptoExchangeRate: dec("16452.89"),
			FXFeePct:                dec("0.005"),
			FXFeeUSD:                dec("41.13"),
			FXTotalUSD:              dec("8226.45"),
			ExchangeAmount:          dec("0.5"),
		},
	}

	trade := m.ToMarketTrade("t-id", q, model.TradeTypeSell, "c-id", "p-id", "wall-id", "acc-id")

	assert.Equal(t, "BTC", trade.SourceCurrency)
	assert.Equal(t, "0.5", trade.SourceAmount.String())
	assert.Equal(t, "16370.625549999999", trade.Rate.String())
	assert.Equal(t, "USD", trade.TargetCurrency)
	assert.Equal(t, "8185.31", trade.TargetAmount.String())

	assert.Equal(t, []model.Fee{
		{Amount: dec("41.13"), Currency: "USD", Type: model.FeeFX, Pct: dec("0.005")},
	}, trade.Fees)

	require.Len(t, trade.Fxs, 1)
	leg := trade.Fxs[0]
	assert.Equal(t, model.FXCryptoFiat, leg.Type)
	assert.Equal(t, "0.5", leg.SourceAmount.String())
	assert.Equal(t, "8226.45", leg.TargetAmount.String())
	require.NotNil(t, leg.Rate)
	assert.Equal(t, "16452.89", leg.Rate.String())
}

func TestToMarketTradeJPYRoundsToWholeYen(t *testing.T) {
	m := newTestMapper()

	// JPY has no minor unit, so the fiat-fiat leg's local amount must round
	// to whole yen instead of cents.
	q := tbtcEurQuote()
	q.PaymentFiatCurrency = "JPY"
	q.PaymentFiatRate = dec("1937194.67")
	q.PaymentFiatAmount = dec("1560")
	q.PaymentFiatFee = dec("32")
	q.PaymentFiatTotal = dec("1592")
	q.Details.FiatRate = dec("147.23")

	trade := m.ToMarketTrade("t-id", q, model.TradeTypeSell, "c-id", "p-id", "wall-id", "acc-id")

	require.Len(t, trade.Fxs, 2)
	leg := trade.Fxs[1]
	assert.Equal(t, model.FXFiatFiat, leg.Type)
	assert.Equal(t, model.ProviderMoneycorp, leg.Provider)
	assert.Equal(t, "USD", leg.SourceCurrency)
	assert.Equal(t, "JPY", leg.TargetCurrency)
	// 10.87 USD * 147.23 = 1600.3901, rounded to 0 decimals.
	assert.Equal(t, "1600", leg.TargetAmount.String())
	assert.Equal(t, "1600", leg.TargetTotal.String())
	require.NotNil(t, leg.Rate)
	assert.Equal(t, "147.23", leg.Rate.String())
}

func TestToMarketTradePairsAmountAndTotal(t *testing.T) {
	m := newTestMapper()

	// Some quote directions come back with amount and total swapped; the
	// smaller value is always the amount.
	q := tbtcEurQuote()
	q.PaymentAmount, q.PaymentTotal = q.PaymentTotal, q.PaymentAmount
	q.PaymentFiatAmount, q.PaymentFiatTotal = q.PaymentFiatTotal, q.PaymentFiatAmount

	trade := m.ToMarketTrade("t-id", q, model.TradeTypeSell, "c-id", "p-id", "wall-id", "acc-id")

	assert.Equal(t, "0.00080546", trade.SourceAmount.String())
	assert.Equal(t, "0.00082173", trade.SourceTotal.String())
	assert.Equal(t, "9.8", trade.TargetAmount.String())
	assert.Equal(t, "10", trade.TargetTotal.String())
}

func TestToMarketTradeProviderOverride(t *testing.T) {
	m := newTestMapper()

	q := tbtcEurQuote()
	q.Details.Provider = "B2C2"

	trade := m.ToMarketTrade("t-id", q, model.TradeTypeSell, "c-id", "p-id", "wall-id", "acc-id")

	require.NotEmpty(t, trade.Fxs)
	assert.Equal(t, "B2C2", trade.Fxs[0].Provider)
	assert.Equal(t, model.ProviderMoneycorp, trade.Fxs[1].Provider)
}
