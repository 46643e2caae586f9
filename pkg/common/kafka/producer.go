package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/tbdelay/platform/pkg/common/logger"
	"github.com/tbdelay/platform/pkg/common/models"
)

// RunIDKey is the event data field that keys messages, so every event about
// one training run lands on the same partition.
const RunIDKey = "run_id"

const (
	headerEventType = "event-type"
	headerSource    = "source"
	headerRunID     = "run-id"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// PublishEvent wraps data in an event envelope and writes it synchronously.
func (p *Producer) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	event := NewEvent(eventType, source, data)
	message, err := NewMessage(event)
	if err != nil {
		return err
	}

	fields := logrus.Fields{
		"event_id":   event.ID,
		"event_type": eventType,
		"topic":      p.writer.Topic,
		"key":        string(message.Key),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.WithFields(fields).WithError(err).Error("Failed to publish event")
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	logger.WithFields(fields).Info("Event published")
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func NewEvent(eventType, source string, data map[string]interface{}) models.Event {
	return models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessage encodes an event. The message key is the run ID when the event
// carries one and the event ID otherwise.
func NewMessage(event models.Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	key := event.ID
	headers := []kafka.Header{
		{Key: headerEventType, Value: []byte(event.Type)},
		{Key: headerSource, Value: []byte(event.Source)},
	}
	if runID, ok := event.Data[RunIDKey].(string); ok && runID != "" {
		key = runID
		headers = append(headers, kafka.Header{Key: headerRunID, Value: []byte(runID)})
	}

	return kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: headers,
		Time:    event.Timestamp,
	}, nil
}
