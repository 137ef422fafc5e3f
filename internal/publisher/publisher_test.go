package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/miraucorp/trade-service/pkg/model"
)

// --- mock types ---

// mockJetStream implements a minimal JetStreamContext for testing
type mockJetStream struct {
	published []*nats.Msg
	fail      bool
}

func (m *mockJetStream) PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if m.fail {
		return nil, errors.New("mock publish error")
	}
	m.published = append(m.published, msg)
	return &nats.PubAck{Stream: "mock-stream"}, nil
}

// Implement remaining JetStreamContext interface methods as no-ops for testing
func (m *mockJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	return nil, nil
}
func (m *mockJetStream) PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error) {
	return nil, nil
}
func (m *mockJetStream) PublishMsgAsync(msg *nats.Msg, opts ...nats.PubOpt) (nats.PubAckFuture, error) {
	return nil, nil
}
func (m *mockJetStream) PublishAsyncPending() int { return 0 }
func (m *mockJetStream) PublishAsyncComplete() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (m *mockJetStream) CleanupPublisher() {}
func (m *mockJetStream) Subscribe(subj string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) SubscribeSync(subj string, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) ChanSubscribe(subj string, ch chan *nats.Msg, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) ChanQueueSubscribe(subj, queue string, ch chan *nats.Msg, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) QueueSubscribe(subj, queue string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) QueueSubscribeSync(subj, queue string, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) PullSubscribe(subj, durable string, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	return nil, nil
}
func (m *mockJetStream) UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	return nil, nil
}
func (m *mockJetStream) DeleteStream(name string, opts ...nats.JSOpt) error { return nil }
func (m *mockJetStream) StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	return nil, nil
}
func (m *mockJetStream) Streams(opts ...nats.JSOpt) <-chan *nats.StreamInfo {
	ch := make(chan *nats.StreamInfo)
	close(ch)
	return ch
}
func (m *mockJetStream) PurgeStream(name string, opts ...nats.JSOpt) error { return nil }
func (m *mockJetStream) StreamsInfo(opts ...nats.JSOpt) <-chan *nats.StreamInfo {
	ch := make(chan *nats.StreamInfo)
	close(ch)
	return ch
}
func (m *mockJetStream) StreamNames(opts ...nats.JSOpt) <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}
func (m *mockJetStream) GetMsg(name string, seq uint64, opts ...nats.JSOpt) (*nats.RawStreamMsg, error) {
	return nil, nil
}
func (m *mockJetStream) GetLastMsg(name, subj string, opts ...nats.JSOpt) (*nats.RawStreamMsg, error) {
	return nil, nil
}
func (m *mockJetStream) DeleteMsg(name string, seq uint64, opts ...nats.JSOpt) error { return nil }
func (m *mockJetStream) SecureDeleteMsg(name string, seq uint64, opts ...nats.JSOpt) error {
	return nil
}
func (m *mockJetStream) AddConsumer(stream string, cfg *nats.ConsumerConfig, opts ...nats.JSOpt) (*nats.ConsumerInfo, error) {
	return nil, nil
}
func (m *mockJetStream) UpdateConsumer(stream string, cfg *nats.ConsumerConfig, opts ...nats.JSOpt) (*nats.ConsumerInfo, error) {
	return nil, nil
}
func (m *mockJetStream) DeleteConsumer(stream, consumer string, opts ...nats.JSOpt) error { return nil }
func (m *mockJetStream) ConsumerInfo(stream, name string, opts ...nats.JSOpt) (*nats.ConsumerInfo, error) {
	return nil, nil
}
func (m *mockJetStream) Consumers(stream string, opts ...nats.JSOpt) <-chan *nats.ConsumerInfo {
	ch := make(chan *nats.ConsumerInfo)
	close(ch)
	return ch
}
func (m *mockJetStream) ConsumersInfo(stream string, opts ...nats.JSOpt) <-chan *nats.ConsumerInfo {
	ch := make(chan *nats.ConsumerInfo)
	close(ch)
	return ch
}
func (m *mockJetStream) ConsumerNames(stream string, opts ...nats.JSOpt) <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}
func (m *mockJetStream) AccountInfo(opts ...nats.JSOpt) (*nats.AccountInfo, error) { return nil, nil }
func (m *mockJetStream) StreamNameBySubject(string, ...nats.JSOpt) (string, error) { return "", nil }
func (m *mockJetStream) KeyValue(bucket string) (nats.KeyValue, error)             { return nil, nil }
func (m *mockJetStream) CreateKeyValue(cfg *nats.KeyValueConfig) (nats.KeyValue, error) {
	return nil, nil
}
func (m *mockJetStream) DeleteKeyValue(bucket string) error { return nil }
func (m *mockJetStream) KeyValueStoreNames() <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}
func (m *mockJetStream) KeyValueStores() <-chan nats.KeyValueStatus {
	ch := make(chan nats.KeyValueStatus)
	close(ch)
	return ch
}
func (m *mockJetStream) ObjectStore(bucket string) (nats.ObjectStore, error) { return nil, nil }
func (m *mockJetStream) CreateObjectStore(cfg *nats.ObjectStoreConfig) (nats.ObjectStore, error) {
	return nil, nil
}
func (m *mockJetStream) DeleteObjectStore(bucket string) error { return nil }
func (m *mockJetStream) ObjectStoreNames(opts ...nats.ObjectOpt) <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}
func (m *mockJetStream) ObjectStores(opts ...nats.ObjectOpt) <-chan nats.ObjectStoreStatus {
	ch := make(chan nats.ObjectStoreStatus)
	close(ch)
	return ch
}

// --- helper ---

func newTestPublisher(fail bool) *Publisher {
	js := &mockJetStream{fail: fail}
	return &Publisher{
		nc: nil,
		js: js,
		subjects: Subjects{
			Fulfill:      "cmd.trade.fulfill.v1",
			LimitProcess: "cmd.trade.limit.process.v1",
			LimitCancel:  "cmd.trade.limit.cancel.v1",
			StatusUpdate: "cmd.trade.status.v1",
		},
		service: "trade-service",
	}
}

// --- tests ---

func TestPublishFulfillTrade_Success(t *testing.T) {
	pub := newTestPublisher(false)

	err := pub.PublishFulfillTrade(context.Background(), "trade-001", false, "contact-001", "partner-001")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	js := pub.js.(*mockJetStream)
	if len(js.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(js.published))
	}

	msg := js.published[0]
	if msg.Subject != "cmd.trade.fulfill.v1" {
		t.Errorf("unexpected subject: %s", msg.Subject)
	}

	// verify headers
	if msg.Header.Get("event_type") != "trade.fulfill" {
		t.Errorf("expected header event_type=trade.fulfill, got %s", msg.Header.Get("event_type"))
	}
	if msg.Header.Get("contact_id") != "contact-001" {
		t.Errorf("expected header contact_id=contact-001, got %s", msg.Header.Get("contact_id"))
	}

	// verify envelope round-trip
	var env model.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	if env.PartnerID != "partner-001" {
		t.Errorf("expected partner_id=partner-001, got %s", env.PartnerID)
	}

	var cmd model.FulfillTradeCommand
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if cmd.TradeID != "trade-001" {
		t.Errorf("expected tradeId=trade-001, got %s", cmd.TradeID)
	}
	if cmd.IsRetry {
		t.Error("expected isRetry=false")
	}
}

func TestPublishFulfillTrade_Retry(t *testing.T) {
	pub := newTestPublisher(false)

	if err := pub.PublishFulfillTrade(context.Background(), "trade-002", true, "contact-001", "partner-001"); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	js := pub.js.(*mockJetStream)
	var env model.Envelope
	if err := json.Unmarshal(js.published[0].Data, &env); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	var cmd model.FulfillTradeCommand
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if !cmd.IsRetry {
		t.Error("expected isRetry=true")
	}
}

func TestPublishCancelLimitTrade(t *testing.T) {
	pub := newTestPublisher(false)

	if err := pub.PublishCancelLimitTrade(context.Background(), "trade-003", "contact-007", "partner-001"); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	js := pub.js.(*mockJetStream)
	msg := js.published[0]
	if msg.Subject != "cmd.trade.limit.cancel.v1" {
		t.Errorf("unexpected subject: %s", msg.Subject)
	}

	var env model.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	var cmd model.CancelLimitTradeCommand
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if cmd.ContactID != "contact-007" {
		t.Errorf("expected contactId=contact-007, got %s", cmd.ContactID)
	}
	if cmd.PartnerID != "partner-001" {
		t.Errorf("expected partnerId=partner-001, got %s", cmd.PartnerID)
	}
}

func TestPublishUpdateTradeStatus(t *testing.T) {
	pub := newTestPublisher(false)

	if err := pub.PublishUpdateTradeStatus(context.Background(), "trade-004", model.StatusFailed, "contact-001", "partner-001"); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	js := pub.js.(*mockJetStream)
	msg := js.published[0]
	if msg.Subject != "cmd.trade.status.v1" {
		t.Errorf("unexpected subject: %s", msg.Subject)
	}

	var env model.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	var cmd model.UpdateTradeStatusCommand
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if cmd.TradeStatus != model.StatusFailed {
		t.Errorf("expected tradeStatus=FAILED, got %s", cmd.TradeStatus)
	}
}

func TestPublishEnvelope_Failure(t *testing.T) {
	pub := newTestPublisher(true)

	err := pub.PublishProcessLimitTrade(context.Background(), "trade-005", false, "contact-001", "partner-001")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
