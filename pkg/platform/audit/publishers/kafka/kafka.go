// Package kafka publishes audit events to a Kafka topic. The topic is a
// write-only sink for downstream compliance consumers; reads stay on the
// primary store.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	id "refledger/pkg/domain"
	audit "refledger/pkg/platform/audit"
	"refledger/pkg/platform/sentinel"
)

const defaultTopic = "refledger.audit.v1"

type Sink struct {
	client *kgo.Client
	topic  string
}

// payload is the wire structure; field names are part of the consumer
// contract, change them only with a topic version bump.
type payload struct {
	Timestamp    string `json:"timestamp"`
	Participant  string `json:"participant_id,omitempty"`
	Action       string `json:"action"`
	Counterparty string `json:"counterparty_id,omitempty"`
	Amount       uint64 `json:"amount,omitempty"`
	Level        int    `json:"level,omitempty"`
	Parameter    string `json:"parameter,omitempty"`
	Reason       string `json:"reason,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	ActorID      string `json:"actor_id,omitempty"`
}

// New connects to the brokers and ensures the audit topic exists.
func New(ctx context.Context, brokers []string, topic string) (*Sink, error) {
	if topic == "" {
		topic = defaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		// Already-exists is fine; anything else is surfaced at startup.
		if !isTopicExists(err) {
			client.Close()
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
	}
	return &Sink{client: client, topic: topic}, nil
}

func isTopicExists(err error) bool {
	// kadm returns per-topic errors with the broker error text embedded.
	return err != nil && containsTopicExists(err.Error())
}

func containsTopicExists(s string) bool {
	const marker = "TOPIC_ALREADY_EXISTS"
	for i := 0; i+len(marker) <= len(s); i++ {
		if s[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}

// Append produces the event keyed by participant so per-participant ordering
// holds within a partition.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(payload{
		Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
		Participant:  participantKey(event.Participant),
		Action:       event.Action,
		Counterparty: participantKey(event.Counterparty),
		Amount:       event.Amount,
		Level:        event.Level,
		Parameter:    event.Parameter,
		Reason:       event.Reason,
		RequestID:    event.RequestID,
		ActorID:      event.ActorID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(participantKey(event.Participant)),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListByParticipant is unsupported; Kafka is a write-only sink.
func (s *Sink) ListByParticipant(context.Context, id.ParticipantID) ([]audit.Event, error) {
	return nil, sentinel.ErrUnavailable
}

func (s *Sink) Close() {
	s.client.Close()
}

func participantKey(p id.ParticipantID) string {
	if p.IsNil() {
		return ""
	}
	return p.String()
}
