package pricing

import "github.com/miraucorp/trade-service/pkg/model"

// LimitStatus is the coarse limit-order lifecycle shown to end users and
// external API consumers, derived from the internal status/substatus pair.
type LimitStatus string

const (
	LimitStatusOpening    LimitStatus = "OPENING"
	LimitStatusOpen       LimitStatus = "OPEN"
	LimitStatusClosing    LimitStatus = "CLOSING"
	LimitStatusClosed     LimitStatus = "CLOSED"
	LimitStatusCancelling LimitStatus = "CANCELLING"
	LimitStatusCancelled  LimitStatus = "CANCELLED"
	LimitStatusExpired    LimitStatus = "EXPIRED"
	LimitStatusFailed     LimitStatus = "FAILED"
	LimitStatusUnknown    LimitStatus = "UNKNOWN"
)

// ResolveLimitStatus maps a limit order's internal state to its display
// status. A cancel or expiry substatus takes precedence but only settles
// (CANCELLED/EXPIRED) once the fulfillment worker has driven the trade to a
// final internal status; until then the order is still unwinding.
func ResolveLimitStatus(status model.TradeStatus, substatus model.TradeSubstatus) LimitStatus {
	switch substatus {
	case model.SubstatusCancelled:
		if !isFinal(status) {
			return LimitStatusCancelling
		}
		return LimitStatusCancelled
	case model.SubstatusExpired:
		if !isFinal(status) {
			return LimitStatusClosing
		}
		return LimitStatusExpired
	}

	switch status {
	case model.StatusNew, model.StatusDebitWaitingConf, model.StatusDebited:
		return LimitStatusOpening
	case model.StatusOrderOpened:
		return LimitStatusOpen
	case model.StatusOrderClosed, model.StatusExecuted,
		model.StatusCreditWaitingConf, model.StatusCredited,
		model.StatusRefundedWaitingConf, model.StatusRefunded:
		return LimitStatusClosing
	case model.StatusCompleted:
		return LimitStatusClosed
	case model.StatusFailed:
		return LimitStatusFailed
	}
	return LimitStatusUnknown
}

func isFinal(s model.TradeStatus) bool {
	return s == model.StatusFailed || s == model.StatusCompleted
}

// DisplayStatus is the customer-facing status of any trade. Limit orders go
// through ResolveLimitStatus; market trades surface the trade error verbatim
// except on FAILED, which always wins.
func DisplayStatus(t *model.Trade) string {
	if t.IsLimit() {
		return string(ResolveLimitStatus(t.TradeStatus, t.TradeSubstatus))
	}
	if t.TradeStatus == model.StatusFailed {
		return string(t.TradeStatus)
	}
	if t.TradeError != "" {
		return t.TradeError
	}
	return string(t.TradeStatus)
}
