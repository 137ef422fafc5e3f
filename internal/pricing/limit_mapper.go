package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/miraucorp/trade-service/pkg/model"
)

//
// ────────────────────────────────────────────────
//   Limit trade mapping
// ────────────────────────────────────────────────
//

// ToLimitTrade renders a computed LimitRate as a NEW-status resting limit
// order. All amounts are rounded to their currency's decimals; the trade
// carries the customer-facing rate, the FX leg carries the fee-free rate
// actually placed at the venue.
func (m *Mapper) ToLimitTrade(
	tradeID string,
	lr model.LimitRate,
	action model.TradeType,
	contactID, partnerID, walletID, accountID string,
	now time.Time,
) (model.Trade, error) {
	sourceDec, err := m.coins.Decimals(lr.SourceCurrency)
	if err != nil {
		return model.Trade{}, err
	}
	targetDec, err := m.coins.Decimals(lr.TargetCurrency)
	if err != nil {
		return model.Trade{}, err
	}

	rate, inverse, err := m.venueRates(action, lr.UserLimitRate, lr.SourceCurrency, lr.TargetCurrency)
	if err != nil {
		return model.Trade{}, err
	}

	sourceWallet, targetWallet := walletID, accountID
	if action == model.TradeTypeBuy {
		sourceWallet, targetWallet = accountID, walletID
	}

	expiresAt := now.Add(m.limitExpiration)

	fx, err := m.limitFx(action, lr, sourceDec, targetDec, now, expiresAt)
	if err != nil {
		return model.Trade{}, err
	}

	return model.Trade{
		TradeID:   tradeID,
		ContactID: contactID,
		PartnerID: partnerID,

		TradeStatus: model.StatusNew,
		TradeType:   action,

		SourceAmount:        lr.SourceAmount.Round(sourceDec),
		SourceCurrency:      lr.SourceCurrency,
		FeeInSourceCurrency: lr.FeeInSourceCurrency.Round(sourceDec),
		SourceTotal:         lr.SourceTotal.Round(sourceDec),
		SourceWalletID:      sourceWallet,

		TargetAmount:        lr.TargetAmount.Round(targetDec),
		TargetCurrency:      lr.TargetCurrency,
		FeeInTargetCurrency: lr.FeeInTargetCurrency.Round(targetDec),
		TargetTotal:         lr.TargetTotal.Round(targetDec),
		TargetWalletID:      targetWallet,

		Rate:        rate,
		InverseRate: inverse,

		Fees: lr.Fees,
		Fxs:  []model.TradeFx{fx},

		OrderType:   model.OrderTypeLimit,
		ExecutedPct: "0",
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}, nil
}

// limitFx is the single venue leg of a limit order. Limit trades are always
// USD-quoted, so the leg spans the whole trade and uses the fee-free raw
// rate the order is placed at.
func (m *Mapper) limitFx(
	action model.TradeType,
	lr model.LimitRate,
	sourceDec, targetDec int32,
	createdAt, expiresAt time.Time,
) (model.TradeFx, error) {
	rate, inverse, err := m.venueRates(action, lr.RawLimitRate, lr.SourceCurrency, lr.TargetCurrency)
	if err != nil {
		return model.TradeFx{}, err
	}

	fxType := model.FXCryptoFiat
	if action == model.TradeTypeBuy {
		fxType = model.FXFiatCrypto
	}

	zero := decimal.Zero
	return model.TradeFx{
		Type:          fxType,
		Provider:      model.ProviderKraken,
		QuoteOrActual: "QUOTE",

		SourceAmount:   lr.SourceAmount.Round(sourceDec),
		SourceCurrency: lr.SourceCurrency,
		SourceTotal:    lr.SourceTotal.Round(sourceDec),

		TargetAmount:   lr.TargetAmount.Round(targetDec),
		TargetCurrency: lr.TargetCurrency,
		TargetTotal:    lr.TargetTotal.Round(targetDec),

		Rate:        &rate,
		InverseRate: &inverse,

		OrderType:      model.OrderTypeLimit,
		VolumeExecuted: &zero,
		CreatedAt:      createdAt,
		ExpiresAt:      expiresAt,
	}, nil
}

// venueRates renders a fiat-per-crypto rate and its inverse at the precision
// the venue accepts. The rate side uses the venue's per-pair price precision,
// the inverse side uses the crypto coin's own decimals.
func (m *Mapper) venueRates(action model.TradeType, rate decimal.Decimal, sourceCurrency, targetCurrency string) (decimal.Decimal, decimal.Decimal, error) {
	cryptoCoin := sourceCurrency
	if action == model.TradeTypeBuy {
		cryptoCoin = targetCurrency
	}
	cryptoDec, err := m.coins.Decimals(cryptoCoin)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	rateDec := venueRateDecimals(cryptoCoin)

	fiatPerCrypto := rate.Round(rateDec)
	cryptoPerFiat := one.Div(rate).Round(cryptoDec)
	if action == model.TradeTypeSell {
		return fiatPerCrypto, cryptoPerFiat, nil
	}
	return cryptoPerFiat, fiatPerCrypto, nil
}

// venueRateDecimals is the venue's price precision per pair. This is NOT the
// coin's display precision: the venue quotes BTC pairs at one decimal.
func venueRateDecimals(coin string) int32 {
	switch coin {
	case "BTC", "TBTC":
		return 1
	case "TRX":
		return 6
	default:
		return 2
	}
}
