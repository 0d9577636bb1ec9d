// Package kafka delivers operator notification bundles to a Kafka topic so
// downstream consumers (operator chat relays, archival) fan out from one
// stream.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"intake/internal/notify"
)

// Notifier publishes bundles as JSON records keyed by respondent, so all
// notifications about one respondent land in one partition in order.
type Notifier struct {
	client *kgo.Client
	topic  string
	log    *slog.Logger
}

// New connects to the brokers and ensures the topic exists.
func New(ctx context.Context, brokers []string, topic string, log *slog.Logger) (*Notifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil &&
		!errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
	}

	return &Notifier{client: client, topic: topic, log: log}, nil
}

func (n *Notifier) SessionCompleted(ctx context.Context, b *notify.CompletionBundle) error {
	return n.produce(ctx, "session_completed", string(b.RespondentID), b)
}

func (n *Notifier) VerificationCaptured(ctx context.Context, b *notify.VerificationBundle) error {
	return n.produce(ctx, "verification_captured", string(b.RespondentID), b)
}

type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func (n *Notifier) produce(ctx context.Context, kind, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s bundle: %w", kind, err)
	}
	value, err := json.Marshal(envelope{Kind: kind, Payload: data})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", kind, err)
	}

	record := &kgo.Record{Topic: n.topic, Key: []byte(key), Value: value}
	if err := n.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", kind, err)
	}
	n.log.Debug("notification produced",
		slog.String("kind", kind),
		slog.String("topic", n.topic))
	return nil
}

// Close flushes outstanding records and releases the client.
func (n *Notifier) Close() {
	n.client.Close()
}
