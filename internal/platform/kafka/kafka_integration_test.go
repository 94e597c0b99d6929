//go:build integration

package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"provenant/internal/outbox"
	outboxmemory "provenant/internal/outbox/store/memory"
	"provenant/pkg/testutil/containers"
)

type ProducerSuite struct {
	suite.Suite
	broker   string
	topic    string
	producer *Producer
}

func TestProducerSuite(t *testing.T) {
	suite.Run(t, new(ProducerSuite))
}

func (s *ProducerSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
}

func (s *ProducerSuite) SetupTest() {
	s.topic = "provenant-test-" + uuid.NewString()[:8]
	var err error
	s.producer, err = NewProducer(Config{Brokers: []string{s.broker}, Topic: s.topic, ClientID: "provenant-test"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.Require().NoError(s.producer.EnsureTopic(context.Background(), s.topic, 3, 1))
}

func (s *ProducerSuite) TearDownTest() {
	s.producer.Close()
}

func (s *ProducerSuite) consume(n int) []*kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	var out []*kgo.Record
	for len(out) < n {
		fetches := client.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "timed out after %d of %d records", len(out), n)
		fetches.EachRecord(func(r *kgo.Record) { out = append(out, r) })
	}
	return out
}

func (s *ProducerSuite) TestEnsureTopicIsIdempotent() {
	s.NoError(s.producer.EnsureTopic(context.Background(), s.topic, 3, 1))
	s.NoError(s.producer.Ping(context.Background()))
}

func (s *ProducerSuite) TestRelayPublishesRecordOrderPerKey() {
	store := outboxmemory.New()
	recordID := uuid.NewString()
	for i := range 5 {
		s.Require().NoError(store.Enqueue(context.Background(), outbox.Message{
			ID:        uuid.New(),
			Topic:     s.topic,
			Key:       recordID,
			EventType: "ledger.event_appended",
			Payload:   []byte{byte('0' + i)},
			CreatedAt: time.Now(),
		}))
	}
	relay, err := outbox.NewRelay(store, s.producer, outbox.WithBatchSize(2))
	s.Require().NoError(err)

	total := 0
	for {
		n, err := relay.RunOnce(context.Background())
		s.Require().NoError(err)
		if n == 0 {
			break
		}
		total += n
	}
	s.Equal(5, total)

	records := s.consume(5)
	for i, r := range records {
		s.Equal(recordID, string(r.Key))
		s.Equal([]byte{byte('0' + i)}, r.Value)
		s.Equal(records[0].Partition, r.Partition)
		s.Equal("event_type", r.Headers[1].Key)
	}
	pending, err := store.Pending(context.Background(), 10)
	s.Require().NoError(err)
	s.Empty(pending)
}
