package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/miraucorp/trade-service/pkg/model"
)

// USD fee amounts are always rendered at 2 decimals, on both networks.
const usdDecimals = 2

// limitOrderProviderMargin is the extra venue margin expected on limit orders
// only; market orders carry the venue fee inside the quote itself.
var limitOrderProviderMargin = decimal.NewFromFloat(0.02)

// FeeSchedule is a contact's percentage fee schedule, as fractions
// (e.g. 0.02 for 2%).
type FeeSchedule struct {
	FX  decimal.Decimal
	ALF decimal.Decimal
	PRV decimal.Decimal
}

// NewFeeSchedule extracts the FX and ALF percentage rates from raw fee
// records and fixes PRV at the limit-order provider margin.
func NewFeeSchedule(records []model.FeeRecord) FeeSchedule {
	s := FeeSchedule{PRV: limitOrderProviderMargin}
	for _, r := range records {
		if r.Type != "PCT" {
			continue
		}
		switch r.Code {
		case "FX":
			s.FX = r.Amount
		case "ALF":
			s.ALF = r.Amount
		}
	}
	return s
}

// quoteFees renders the USD fee list of a market quote. A fee entry is
// emitted only if its amount or percentage is strictly positive; zero-fee
// legs are omitted, not zeroed.
func quoteFees(q model.Quote) []model.Fee {
	var fees []model.Fee
	d := q.Details
	if d.FXFeeUSD.IsPositive() || d.FXFeePct.IsPositive() {
		fees = append(fees, model.Fee{
			Amount:   d.FXFeeUSD,
			Currency: "USD",
			Type:     model.FeeFX,
			Pct:      d.FXFeePct,
		})
	}
	if d.TxFeeUSD.IsPositive() || d.TxFeePct.IsPositive() {
		fees = append(fees, model.Fee{
			Amount:   d.TxFeeUSD,
			Currency: "USD",
			Type:     model.FeeTXN,
			Pct:      d.TxFeePct,
		})
	}
	if d.ExternalFXFeeUSD.IsPositive() || d.ExternalFXFeePct.IsPositive() {
		fees = append(fees, model.Fee{
			Amount:   d.ExternalFXFeeUSD,
			Currency: "USD",
			Type:     model.FeeBCN,
			Pct:      d.ExternalFXFeePct,
		})
	}
	return fees
}

// usdFeeAmounts peels the PRV, FX and ALF layers off totalUSD sequentially,
// reporting the delta removed at each step as one fee entry. Order matters:
// each percentage compounds on the remainder of the previous step.
func usdFeeAmounts(totalUSD decimal.Decimal, sched FeeSchedule) []model.Fee {
	var fees []model.Fee
	rest := totalUSD

	peel := func(pct decimal.Decimal, typ model.FeeType) {
		if pct.IsZero() {
			return
		}
		withFee := rest
		rest = rest.Mul(one.Sub(pct))
		fees = append(fees, model.Fee{
			Amount:   withFee.Sub(rest).Round(usdDecimals),
			Currency: "USD",
			Type:     typ,
			Pct:      pct,
		})
	}

	peel(sched.PRV, model.FeePRV)
	peel(sched.FX, model.FeeFX)
	peel(sched.ALF, model.FeeALF)
	return fees
}
