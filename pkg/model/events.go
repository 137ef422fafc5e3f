package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical command/event envelope.
// All messages published to NATS follow this format.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	PartnerID     string          `json:"partner_id"`
	ContactID     string          `json:"contact_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// Worker command payloads carried inside envelopes.

// FulfillTradeCommand asks the fulfillment worker to execute a market trade.
type FulfillTradeCommand struct {
	TradeID string `json:"tradeId"`
	IsRetry bool   `json:"isRetry"`
}

// ProcessLimitTradeCommand asks the limit worker to open a new limit order.
type ProcessLimitTradeCommand struct {
	TradeID string `json:"tradeId"`
	IsRetry bool   `json:"isRetry"`
}

// CancelLimitTradeCommand asks the limit worker to cancel an open limit order.
type CancelLimitTradeCommand struct {
	TradeID   string `json:"tradeId"`
	ContactID string `json:"contactId"`
	PartnerID string `json:"partnerId"`
}

// UpdateTradeStatusCommand forces a trade into a terminal status.
type UpdateTradeStatusCommand struct {
	TradeID     string      `json:"tradeId"`
	TradeStatus TradeStatus `json:"tradeStatus"`
}
