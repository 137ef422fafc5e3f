package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/miraucorp/trade-service/pkg/model"
)

func TestResolveLimitStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    model.TradeStatus
		substatus model.TradeSubstatus
		expected  LimitStatus
	}{
		{"new", model.StatusNew, model.SubstatusNone, LimitStatusOpening},
		{"debit waiting conf", model.StatusDebitWaitingConf, model.SubstatusNone, LimitStatusOpening},
		{"debited", model.StatusDebited, model.SubstatusNone, LimitStatusOpening},
		{"order opened", model.StatusOrderOpened, model.SubstatusNone, LimitStatusOpen},
		{"order closed", model.StatusOrderClosed, model.SubstatusNone, LimitStatusClosing},
		{"executed", model.StatusExecuted, model.SubstatusNone, LimitStatusClosing},
		{"credit waiting conf", model.StatusCreditWaitingConf, model.SubstatusNone, LimitStatusClosing},
		{"credited", model.StatusCredited, model.SubstatusNone, LimitStatusClosing},
		{"refunded waiting conf", model.StatusRefundedWaitingConf, model.SubstatusNone, LimitStatusClosing},
		{"refunded", model.StatusRefunded, model.SubstatusNone, LimitStatusClosing},
		{"completed", model.StatusCompleted, model.SubstatusNone, LimitStatusClosed},
		{"failed", model.StatusFailed, model.SubstatusNone, LimitStatusFailed},
		{"unrecognized status", model.TradeStatus("SOMETHING"), model.SubstatusNone, LimitStatusUnknown},

		// A cancel request shows CANCELLING until the worker settles the trade.
		{"cancel pending", model.StatusOrderOpened, model.SubstatusCancelled, LimitStatusCancelling},
		{"cancel refunding", model.StatusRefundedWaitingConf, model.SubstatusCancelled, LimitStatusCancelling},
		{"cancel settled", model.StatusCompleted, model.SubstatusCancelled, LimitStatusCancelled},
		{"cancel failed", model.StatusFailed, model.SubstatusCancelled, LimitStatusCancelled},

		// Expiry unwinds as CLOSING, not EXPIRED, until final.
		{"expiry pending", model.StatusDebited, model.SubstatusExpired, LimitStatusClosing},
		{"expiry settled", model.StatusCompleted, model.SubstatusExpired, LimitStatusExpired},
		{"expiry failed", model.StatusFailed, model.SubstatusExpired, LimitStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveLimitStatus(tt.status, tt.substatus))
		})
	}
}

func TestDisplayStatus(t *testing.T) {
	t.Run("limit orders resolve through the state machine", func(t *testing.T) {
		trade := &model.Trade{
			OrderType:   model.OrderTypeLimit,
			TradeStatus: model.StatusOrderOpened,
		}
		assert.Equal(t, "OPEN", DisplayStatus(trade))
	})

	t.Run("market trades surface the raw status", func(t *testing.T) {
		trade := &model.Trade{TradeStatus: model.StatusCredited}
		assert.Equal(t, "CREDITED", DisplayStatus(trade))
	})

	t.Run("trade error overrides a non-failed status", func(t *testing.T) {
		trade := &model.Trade{
			TradeStatus: model.StatusDebited,
			TradeError:  "DEBIT_REJECTED",
		}
		assert.Equal(t, "DEBIT_REJECTED", DisplayStatus(trade))
	})

	t.Run("failed beats the trade error", func(t *testing.T) {
		trade := &model.Trade{
			TradeStatus: model.StatusFailed,
			TradeError:  "DEBIT_REJECTED",
		}
		assert.Equal(t, "FAILED", DisplayStatus(trade))
	})
}
