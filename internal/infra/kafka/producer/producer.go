package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/lumina/internal/model"
)

// Producer publishes JSON messages to one Kafka topic.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
	topic    string
}

// New creates a Producer for topic.
// - brokers: list of Kafka broker addresses
// - topic: destination topic
// - s: retry strategy for sends
func New(brokers []string, topic string, s retry.Strategy) *Producer {
	return &Producer{
		Client:   wbfkafka.NewProducer(brokers, topic),
		strategy: s,
		topic:    topic,
	}
}

// Produce serializes v to JSON and sends it with the given partition key.
func (p *Producer) Produce(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err = p.Client.SendWithRetry(ctx, p.strategy, []byte(key), data); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", p.topic, err)
	}

	return nil
}

// RequestRun publishes a batch run command.
func (p *Producer) RequestRun(ctx context.Context, req model.RunRequest) error {
	return p.Produce(ctx, req.ID.String(), req)
}

// Notify publishes an item status event keyed by item id, so that the
// transitions of one item stay ordered within a partition. Failures are
// logged and never reach the batch runner.
func (p *Producer) Notify(ctx context.Context, ev model.ItemEvent) {
	if err := p.Produce(ctx, ev.ItemID.String(), ev); err != nil {
		zlog.Logger.Err(err).
			Str("item_id", ev.ItemID.String()).
			Str("status", string(ev.Status)).
			Msg("failed to publish item event")
	}
}
