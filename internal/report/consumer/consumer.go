package consumer

import (
	"context"

	"github.com/segmentio/kafka-go"

	"planform/internal/models"
	"planform/pkg/logger"
)

// TaskConsumer consumes task messages from one Kafka topic.
type TaskConsumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewTaskConsumer creates a consumer over an already configured reader.
func NewTaskConsumer(reader *kafka.Reader, logger *logger.Logger) *TaskConsumer {
	return &TaskConsumer{reader: reader, logger: logger}
}

// Start consumes messages until the context is cancelled. Handler errors are
// logged; the message is committed either way so a poisoned task cannot
// wedge the partition.
func (c *TaskConsumer) Start(ctx context.Context, handler func(kafka.Message) error) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Stopping task consumer...")
				return
			default:
				msg, err := c.reader.FetchMessage(ctx)
				if err != nil {
					if ctx.Err() == nil {
						c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching task message")
					}
					continue
				}

				if err := handler(msg); err != nil {
					c.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
						"topic":     msg.Topic,
						"partition": msg.Partition,
						"offset":    msg.Offset,
					}).Error("Error handling task message")
				}

				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to commit task message")
				}
			}
		}
	}()
}

// Close closes the underlying reader.
func (c *TaskConsumer) Close() error {
	return c.reader.Close()
}
