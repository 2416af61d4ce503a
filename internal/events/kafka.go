package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the subset of *kafka.Writer used by KafkaPublisher.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaBatchTimeout bounds how long a synchronous write waits for a batch
// to fill. Each request writes a single message, so batches are flushed at
// one message and this only caps the wait.
const kafkaBatchTimeout = 10 * time.Millisecond

// NewKafkaWriter returns a synchronous writer for topic. Messages are keyed
// by user id so one user's events stay ordered within a partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: kafkaBatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
}

type KafkaPublisher struct {
	writer KafkaWriter
}

func NewKafkaPublisher(w KafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.UserID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(e.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
