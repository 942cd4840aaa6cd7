package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/eventgate/checkin/pkg/config"
	"github.com/eventgate/checkin/pkg/logger"
)

// Admission is the record published for each successful check-in. Downstream
// consumers (capacity dashboards, attendance analytics) key on the event id.
type Admission struct {
	RegistrationID string    `json:"registration_id"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	CheckedInAt    time.Time `json:"checked_in_at"`
}

// Producer publishes admissions to Kafka. A Producer built from a disabled
// config has a nil client and publishes nothing; callers never need to
// special-case it.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer creates a Producer from the Kafka config. When the stream is
// disabled the returned Producer is a no-op.
func NewProducer(cfg *config.KafkaConfig) (*Producer, error) {
	if cfg == nil || !cfg.Enabled {
		return &Producer{}, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Producer{
		client: client,
		topic:  cfg.Topic,
	}, nil
}

// PublishAdmission emits one record per admission, keyed by event id.
// Fire-and-forget: a produce failure is logged, never surfaced to the
// check-in path.
func (p *Producer) PublishAdmission(ctx context.Context, admission Admission) {
	if p == nil || p.client == nil {
		return
	}

	value, err := json.Marshal(admission)
	if err != nil {
		logger.ErrorCtx(ctx, "marshal admission record",
			zap.Error(err),
			zap.String("registration_id", admission.RegistrationID),
		)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(admission.EventID),
		Value: value,
	}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			logger.Error("produce admission record",
				zap.Error(err),
				zap.String("topic", r.Topic),
				zap.String("event_id", admission.EventID),
			)
		}
	})
}

// Close flushes in-flight records and releases the client.
func (p *Producer) Close(ctx context.Context) error {
	if p == nil || p.client == nil {
		return nil
	}
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
