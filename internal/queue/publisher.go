package queue

import (
    "context"
    "fmt"

    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/config"
)

// Publisher sends notifications to a broker.  Errors are returned so the
// caller can log them; they never fail the request that triggered them.
type Publisher interface {
    Publish(ctx context.Context, n Notification) error
    Close() error
}

// NewPublisher returns the publisher for cfg.Backend, or nil when queueing
// is disabled.
func NewPublisher(cfg config.QueueConfig, log *zap.Logger) (Publisher, error) {
    switch cfg.Backend {
    case "rabbitmq", "rabbit", "amqp":
        return NewRabbitPublisher(cfg.RabbitURL, cfg.Topic, log), nil
    case "kafka":
        return NewKafkaPublisher(cfg.KafkaBrokers, cfg.Topic, log), nil
    case "", "none":
        return nil, nil
    default:
        return nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.Backend)
    }
}
