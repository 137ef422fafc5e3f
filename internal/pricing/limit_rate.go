package pricing

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/miraucorp/trade-service/internal/coin"
	"github.com/miraucorp/trade-service/pkg/apperr"
	"github.com/miraucorp/trade-service/pkg/model"
)

// ErrInvalidTicker rejects pair strings without a base_quote separator.
var ErrInvalidTicker = apperr.New(http.StatusBadRequest, "invalid ticker")

// ErrLimitRateOutOfRange rejects limit rates outside the admissible band
// around the current market rate.
var ErrLimitRateOutOfRange = apperr.New(http.StatusBadRequest, "limit rate out of range")

var one = decimal.NewFromInt(1)

//
// ────────────────────────────────────────────────
//   Limit rate calculator
// ────────────────────────────────────────────────
//

// Calculator derives both sides of a limit order from a user-chosen rate
// and an amount given in either currency, together with the fee-free rate
// actually sent to the execution venue.
//
// Only USD-quoted tickers are supported for limit orders.
type Calculator struct {
	coins *coin.Registry
}

// NewCalculator constructs a Calculator over the active coin registry.
func NewCalculator(coins *coin.Registry) *Calculator {
	return &Calculator{coins: coins}
}

// LimitRateParams is one limit-rate computation request.
type LimitRateParams struct {
	Action model.TradeType

	// LimitRate is expressed against the ticker's quote currency
	// (fiat-per-crypto for tickers like BTC_USD).
	LimitRate decimal.Decimal

	Ticker string

	// Amount is denominated in Currency, which may be either side of the
	// trade; the other side is derived.
	Amount   decimal.Decimal
	Currency string
}

// LimitRate computes a LimitRate for the given params and fee schedule.
// All intermediate math is arbitrary precision; rounding happens only when
// the limit trade mapper renders the final Trade.
func (c *Calculator) LimitRate(p LimitRateParams, sched FeeSchedule) (*model.LimitRate, error) {
	base, quote, err := splitTicker(p.Ticker)
	if err != nil {
		return nil, err
	}

	kind, err := c.coins.Kind(p.Currency)
	if err != nil {
		return nil, err
	}

	switch p.Action {
	case model.TradeTypeSell:
		var lr model.LimitRate
		if kind == coin.Crypto {
			lr = sellGivenSource(p.Amount, p.Currency, quote, p.LimitRate, sched)
		} else {
			lr = sellGivenTarget(p.Amount, p.Currency, base, p.LimitRate, sched)
		}
		// Stripping fees off a SELL pushes the venue rate up: the house keeps
		// the spread between the customer rate and the raw rate.
		lr.UserLimitRate = p.LimitRate
		lr.RawLimitRate = p.LimitRate.Div(one.Sub(sched.FX)).Div(one.Sub(sched.PRV))
		lr.Fees = usdFeeAmounts(lr.TargetTotal, sched)
		return &lr, nil

	case model.TradeTypeBuy:
		var lr model.LimitRate
		if kind == coin.Fiat {
			lr = buyGivenSource(p.Amount, p.Currency, base, p.LimitRate, sched)
		} else {
			lr = buyGivenTarget(p.Amount, p.Currency, quote, p.LimitRate, sched)
		}
		lr.UserLimitRate = p.LimitRate
		lr.RawLimitRate = p.LimitRate.Mul(one.Sub(sched.FX)).Mul(one.Sub(sched.PRV))
		lr.Fees = usdFeeAmounts(lr.SourceTotal, sched)
		return &lr, nil
	}

	return nil, fmt.Errorf("%w: %s", model.ErrInvalidAction, p.Action)
}

// splitTicker splits "TBTC_USD" into base and quote at the last underscore.
func splitTicker(ticker string) (base, quote string, err error) {
	li := strings.LastIndex(ticker, "_")
	if li < 0 {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidTicker, ticker)
	}
	return ticker[:li], ticker[li+1:], nil
}

//
// Derivation branches. One function per (action, given-side) combination so
// each can be tested on its own.
//

// sellGivenSource: SELL with the amount fixed in crypto (the source).
func sellGivenSource(amount decimal.Decimal, currency, targetCurrency string, rate decimal.Decimal, sched FeeSchedule) model.LimitRate {
	sourceTotal := amount
	feeInSource := sourceTotal.Mul(sched.ALF)
	sourceAmount := sourceTotal.Sub(feeInSource)

	targetTotal := sourceTotal.Mul(rate)
	feeInTarget := targetTotal.Mul(sched.ALF)
	targetAmount := targetTotal.Sub(feeInTarget)

	return model.LimitRate{
		SourceTotal:         sourceTotal,
		FeeInSourceCurrency: feeInSource,
		SourceAmount:        sourceAmount,
		SourceCurrency:      currency,
		TargetTotal:         targetTotal,
		FeeInTargetCurrency: feeInTarget,
		TargetAmount:        targetAmount,
		TargetCurrency:      targetCurrency,
	}
}

// buyGivenSource: BUY with the amount fixed in fiat (the source).
func buyGivenSource(amount decimal.Decimal, currency, targetCurrency string, rate decimal.Decimal, sched FeeSchedule) model.LimitRate {
	sourceTotal := amount
	feeInSource := sourceTotal.Mul(sched.ALF)
	sourceAmount := sourceTotal.Sub(feeInSource)

	targetTotal := sourceTotal.Div(rate)
	feeInTarget := targetTotal.Mul(sched.ALF)
	targetAmount := targetTotal.Sub(feeInTarget)

	return model.LimitRate{
		SourceTotal:         sourceTotal,
		FeeInSourceCurrency: feeInSource,
		SourceAmount:        sourceAmount,
		SourceCurrency:      currency,
		TargetTotal:         targetTotal,
		FeeInTargetCurrency: feeInTarget,
		TargetAmount:        targetAmount,
		TargetCurrency:      targetCurrency,
	}
}

// sellGivenTarget: SELL with the amount fixed in fiat (the target); both
// totals are grossed back up by decompounding the ALF layer.
func sellGivenTarget(amount decimal.Decimal, currency, sourceCurrency string, rate decimal.Decimal, sched FeeSchedule) model.LimitRate {
	targetAmount := amount
	targetTotal := targetAmount.Div(one.Sub(sched.ALF))
	feeInTarget := targetTotal.Sub(targetAmount)

	sourceAmount := targetAmount.Div(rate)
	sourceTotal := sourceAmount.Div(one.Sub(sched.ALF))
	feeInSource := sourceTotal.Sub(sourceAmount)

	return model.LimitRate{
		SourceTotal:         sourceTotal,
		FeeInSourceCurrency: feeInSource,
		SourceAmount:        sourceAmount,
		SourceCurrency:      sourceCurrency,
		TargetTotal:         targetTotal,
		FeeInTargetCurrency: feeInTarget,
		TargetAmount:        targetAmount,
		TargetCurrency:      currency,
	}
}

// buyGivenTarget: BUY with the amount fixed in crypto (the target).
func buyGivenTarget(amount decimal.Decimal, currency, sourceCurrency string, rate decimal.Decimal, sched FeeSchedule) model.LimitRate {
	targetAmount := amount
	targetTotal := targetAmount.Div(one.Sub(sched.ALF))
	feeInTarget := targetTotal.Sub(targetAmount)

	sourceAmount := targetAmount.Mul(rate)
	sourceTotal := sourceAmount.Div(one.Sub(sched.ALF))
	feeInSource := sourceTotal.Sub(sourceAmount)

	return model.LimitRate{
		SourceTotal:         sourceTotal,
		FeeInSourceCurrency: feeInSource,
		SourceAmount:        sourceAmount,
		SourceCurrency:      sourceCurrency,
		TargetTotal:         targetTotal,
		FeeInTargetCurrency: feeInTarget,
		TargetAmount:        targetAmount,
		TargetCurrency:      currency,
	}
}

//
// ────────────────────────────────────────────────
//   Limit rate range validation
// ────────────────────────────────────────────────
//

var (
	minLimitMarginPct = decimal.NewFromFloat(0.001) // 0.1%
	maxLimitMarginPct = decimal.NewFromFloat(0.15)  // 15%
)

// ValidLimitRateRange computes the admissible limit-rate band around the
// current market rate. Near is the bound closest to market, far the one a
// fill is least likely to reach. Rounded to 2 decimals; limit orders are
// USD-quoted only.
func ValidLimitRateRange(action model.TradeType, marketRate decimal.Decimal) (near, far decimal.Decimal, err error) {
	switch action {
	case model.TradeTypeBuy:
		near = marketRate.Mul(one.Sub(minLimitMarginPct)).Round(2)
		far = marketRate.Mul(one.Sub(maxLimitMarginPct)).Round(2)
	case model.TradeTypeSell:
		near = marketRate.Mul(one.Add(minLimitMarginPct)).Round(2)
		far = marketRate.Mul(one.Add(maxLimitMarginPct)).Round(2)
	default:
		err = fmt.Errorf("%w: %s", model.ErrInvalidAction, action)
	}
	return near, far, err
}

// ValidateLimitRate rejects a BUY limit above market or below the far bound,
// and a SELL limit below market or above the far bound.
func ValidateLimitRate(action model.TradeType, limitRate, marketRate decimal.Decimal) error {
	near, far, err := ValidLimitRateRange(action, marketRate)
	if err != nil {
		return err
	}
	switch action {
	case model.TradeTypeBuy:
		if limitRate.GreaterThan(marketRate) || limitRate.LessThan(far) {
			return fmt.Errorf("%w: should be between %s and %s", ErrLimitRateOutOfRange, far, near)
		}
	case model.TradeTypeSell:
		if limitRate.LessThan(marketRate) || limitRate.GreaterThan(far) {
			return fmt.Errorf("%w: should be between %s and %s", ErrLimitRateOutOfRange, near, far)
		}
	}
	return nil
}
