package publisher

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"planform/internal/models"
	"planform/pkg/logger"
)

// TaskPublisher publishes task messages to one Kafka topic through a shared
// writer. The writer carries no topic of its own; each message names the
// topic, so any number of publishers can share it.
type TaskPublisher struct {
	writer *kafka.Writer
	topic  string
	logger *logger.Logger
}

// NewTaskPublisher creates a publisher bound to one topic. The writer's
// lifecycle belongs to its owner; closing it is not the publisher's job.
func NewTaskPublisher(writer *kafka.Writer, topic string, logger *logger.Logger) *TaskPublisher {
	return &TaskPublisher{writer: writer, topic: topic, logger: logger}
}

// Publish marshals and sends a task message keyed by the task id.
func (p *TaskPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to marshal task message")
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"topic": p.topic}).Error("Failed to write task message")
		return err
	}
	return nil
}
