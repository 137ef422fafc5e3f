// Package publisher emits worker commands on NATS JetStream. The fulfillment
// and limit-order workers consume these subjects and report back over the
// trade store, so every command carries only identifiers, never amounts.
package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/miraucorp/trade-service/internal/metrics"
	"github.com/miraucorp/trade-service/pkg/logger"
	"github.com/miraucorp/trade-service/pkg/model"
)

// Subjects groups the worker command subjects a Publisher writes to.
type Subjects struct {
	Fulfill      string
	LimitProcess string
	LimitCancel  string
	StatusUpdate string
}

// Publisher wraps a NATS connection and provides helpers for publishing
// worker commands as canonical envelopes.
type Publisher struct {
	nc       *nats.Conn
	js       nats.JetStreamContext
	subjects Subjects
	service  string
}

// New creates a new Publisher with JetStream enabled if available.
func New(nc *nats.Conn, subjects Subjects, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:       nc,
		js:       js,
		subjects: subjects,
		service:  service,
	}, nil
}

// PublishEnvelope serializes and publishes a canonical envelope to NATS.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"partner_id":     []string{env.PartnerID},
			"contact_id":     []string{env.ContactID},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"contact_id", env.ContactID,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	logger.S().Infow("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
		"contact_id", env.ContactID,
	)

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// PublishFulfillTrade asks the fulfillment worker to execute a market trade.
func (p *Publisher) PublishFulfillTrade(ctx context.Context, tradeID string, isRetry bool, contactID, partnerID string) error {
	cmd := model.FulfillTradeCommand{TradeID: tradeID, IsRetry: isRetry}
	return p.publishCommand(ctx, p.subjects.Fulfill, "trade.fulfill", cmd, contactID, partnerID)
}

// PublishProcessLimitTrade asks the limit worker to open a new limit order.
func (p *Publisher) PublishProcessLimitTrade(ctx context.Context, tradeID string, isRetry bool, contactID, partnerID string) error {
	cmd := model.ProcessLimitTradeCommand{TradeID: tradeID, IsRetry: isRetry}
	return p.publishCommand(ctx, p.subjects.LimitProcess, "trade.limit.process", cmd, contactID, partnerID)
}

// PublishCancelLimitTrade asks the limit worker to cancel an open limit order.
func (p *Publisher) PublishCancelLimitTrade(ctx context.Context, tradeID, contactID, partnerID string) error {
	cmd := model.CancelLimitTradeCommand{TradeID: tradeID, ContactID: contactID, PartnerID: partnerID}
	return p.publishCommand(ctx, p.subjects.LimitCancel, "trade.limit.cancel", cmd, contactID, partnerID)
}

// PublishUpdateTradeStatus forces a trade into a terminal status.
func (p *Publisher) PublishUpdateTradeStatus(ctx context.Context, tradeID string, status model.TradeStatus, contactID, partnerID string) error {
	cmd := model.UpdateTradeStatusCommand{TradeID: tradeID, TradeStatus: status}
	return p.publishCommand(ctx, p.subjects.StatusUpdate, "trade.status.update", cmd, contactID, partnerID)
}

func (p *Publisher) publishCommand(ctx context.Context, subject, eventType string, cmd any, contactID, partnerID string) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		PartnerID:     partnerID,
		ContactID:     contactID,
		Topic:         subject,
		EventType:     eventType,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}

	return p.PublishEnvelope(ctx, subject, env)
}

func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
