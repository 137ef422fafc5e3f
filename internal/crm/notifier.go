// Package crm pushes trade lifecycle notifications to the CRM intake queue
// over RabbitMQ. Delivery is best effort: a trade is never failed because the
// CRM queue is down.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/miraucorp/trade-service/internal/metrics"
	"github.com/miraucorp/trade-service/pkg/model"
)

// TradeEvent is the CRM-facing view of a trade. Amounts are sent as strings
// so the CRM never re-rounds them.
type TradeEvent struct {
	EventType      string `json:"eventType"`
	TradeID        string `json:"tradeId"`
	ContactID      string `json:"contactId"`
	PartnerID      string `json:"partnerId"`
	Action         string `json:"action"`
	OrderType      string `json:"orderType"`
	SourceAmount   string `json:"sourceAmount"`
	SourceCurrency string `json:"sourceCurrency"`
	TargetAmount   string `json:"targetAmount"`
	TargetCurrency string `json:"targetCurrency"`
	TradeStatus    string `json:"tradeStatus"`
	Timestamp      string `json:"timestamp"`
}

// Notifier publishes trade events to RabbitMQ
type Notifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
}

// NewNotifier connects to RabbitMQ and declares the CRM intake queue.
func NewNotifier(url, queue string, logger *zap.Logger) (*Notifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &Notifier{
		conn:    conn,
		channel: channel,
		queue:   queue,
		logger:  logger,
	}, nil
}

// TradeCreated notifies the CRM that a new trade was accepted.
func (n *Notifier) TradeCreated(ctx context.Context, t *model.Trade) {
	n.publish(ctx, "TRADE_CREATED", t)
}

// TradeCancelRequested notifies the CRM that a limit order cancel was requested.
func (n *Notifier) TradeCancelRequested(ctx context.Context, t *model.Trade) {
	n.publish(ctx, "TRADE_CANCEL_REQUESTED", t)
}

func (n *Notifier) publish(ctx context.Context, eventType string, t *model.Trade) {
	event := TradeEvent{
		EventType:      eventType,
		TradeID:        t.TradeID,
		ContactID:      t.ContactID,
		PartnerID:      t.PartnerID,
		Action:         string(t.TradeType),
		OrderType:      string(t.OrderType),
		SourceAmount:   t.SourceAmount.String(),
		SourceCurrency: t.SourceCurrency,
		TargetAmount:   t.TargetAmount.String(),
		TargetCurrency: t.TargetCurrency,
		TradeStatus:    string(t.TradeStatus),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal trade event", zap.Error(err))
		metrics.IncError("crm", "marshal_failed")
		return
	}

	err = n.channel.PublishWithContext(
		ctx,
		"",      // exchange
		n.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		n.logger.Error("Failed to publish trade event",
			zap.String("eventType", eventType),
			zap.String("tradeId", t.TradeID),
			zap.Error(err),
		)
		metrics.IncError("crm", "publish_failed")
		return
	}

	n.logger.Info("Published trade event to CRM",
		zap.String("eventType", eventType),
		zap.String("tradeId", t.TradeID),
	)
}

// Close closes the notifier
func (n *Notifier) Close() error {
	if n.channel != nil {
		_ = n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
