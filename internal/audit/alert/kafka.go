package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"sentra/internal/audit"
)

const publishTimeout = 5 * time.Second

// KafkaNotifier publishes high-risk access alerts to a Kafka topic for the
// notification pipeline to fan out. Publishing is synchronous with a bounded
// timeout; the recorder logs, but does not fail on, delivery errors.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

// NewKafkaNotifier connects to the brokers and ensures the alert topic
// exists. Alerts are keyed by resource owner so all alerts for one owner
// land in partition order.
func NewKafkaNotifier(ctx context.Context, brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("alert topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, -1, -1, nil, topic); err != nil {
		// Topic already existing is the steady state after first boot.
		var exists bool
		if details, derr := admin.ListTopics(ctx, topic); derr == nil {
			exists = details.Has(topic)
		}
		if !exists {
			client.Close()
			return nil, fmt.Errorf("create alert topic %q: %w", topic, err)
		}
	}

	return &KafkaNotifier{client: client, topic: topic}, nil
}

// alertPayload is the JSON shape published for each high-risk access.
type alertPayload struct {
	RecordID      string    `json:"record_id"`
	Timestamp     time.Time `json:"timestamp"`
	SubjectID     string    `json:"subject_id"`
	ResourceType  string    `json:"resource_type"`
	ResourceOwner string    `json:"resource_owner"`
	Operation     string    `json:"operation"`
	Decision      string    `json:"decision"`
	Reason        string    `json:"reason"`
	RequestID     string    `json:"request_id,omitempty"`
}

// Notify publishes one alert and waits for broker acknowledgement.
func (n *KafkaNotifier) Notify(ctx context.Context, record audit.AccessRecord) error {
	payload, err := json.Marshal(alertPayload{
		RecordID:      record.ID.String(),
		Timestamp:     record.Timestamp,
		SubjectID:     record.SubjectID.String(),
		ResourceType:  record.ResourceType,
		ResourceOwner: record.ResourceOwner.String(),
		Operation:     record.Operation,
		Decision:      string(record.Decision),
		Reason:        record.Reason,
		RequestID:     record.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := n.client.ProduceSync(publishCtx, &kgo.Record{
		Topic: n.topic,
		Key:   []byte(record.ResourceOwner.String()),
		Value: payload,
	})
	if err := result.FirstErr(); err != nil {
		return fmt.Errorf("publish high-risk alert: %w", err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (n *KafkaNotifier) Close() {
	n.client.Close()
}
