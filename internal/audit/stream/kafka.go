// Package stream writes audit events to Kafka for downstream consumers
// (SIEM ingestion, long-term archival).
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"sentinel-auth/backend/internal/audit/domain"
)

// KafkaEmitter streams audit events to a Kafka topic using segmentio/kafka-go.
type KafkaEmitter struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaEmitter creates a Kafka emitter for the given topic. Returns nil
// (stream disabled) when brokers or topic are empty. Call Close when shutting down.
func NewKafkaEmitter(brokers []string, topic string) *KafkaEmitter {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
		topic: topic,
	}
}

// Emit serializes the event as JSON and writes it to the topic, keyed by user
// id so one user's events stay ordered within a partition.
func (e *KafkaEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if e == nil || e.writer == nil || event == nil {
		return nil
	}
	payload, err := json.Marshal(streamEvent{
		ID:        event.ID,
		TS:        event.TS,
		UserID:    event.UserID,
		EventType: event.EventType,
		IP:        event.IP,
		UserAgent: event.UserAgent,
		Metadata:  event.Metadata,
	})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return e.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
	})
}

// Close closes the Kafka writer. Safe to call on nil.
func (e *KafkaEmitter) Close() error {
	if e == nil || e.writer == nil {
		return nil
	}
	return e.writer.Close()
}

type streamEvent struct {
	ID        string         `json:"id"`
	TS        time.Time      `json:"ts"`
	UserID    string         `json:"user_id,omitempty"`
	EventType string         `json:"event_type"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
