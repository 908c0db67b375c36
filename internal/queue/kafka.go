package queue

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/segmentio/kafka-go"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/metrics"
)

// KafkaPublisher writes notifications to a topic keyed by recipient, so one
// user's messages stay ordered within a partition.
type KafkaPublisher struct {
    writer *kafka.Writer
    log    *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &KafkaPublisher{
        writer: &kafka.Writer{
            Addr:                   kafka.TCP(brokers...),
            Topic:                  topic,
            Balancer:               &kafka.Hash{},
            AllowAutoTopicCreation: true,
        },
        log: log,
    }
}

func (p *KafkaPublisher) Publish(ctx context.Context, n Notification) error {
    if n.CreatedAt.IsZero() {
        n.CreatedAt = time.Now().UTC()
    }
    body, err := json.Marshal(n)
    if err == nil {
        err = p.writer.WriteMessages(ctx, kafka.Message{
            Key:   []byte(n.To),
            Value: body,
            Time:  n.CreatedAt,
        })
    }
    status := "ok"
    if err != nil {
        status = "error"
        p.log.Warn("kafka publish failed", zap.String("type", n.Type), zap.Error(err))
    }
    metrics.NotificationsPublishedTotal.WithLabelValues("kafka", n.Type, status).Inc()
    return err
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// ConsumeKafka reads the topic as part of groupID until ctx is cancelled.
// Offsets are committed only after h succeeds; messages h rejects are logged
// and committed so they are not redelivered forever.
func ConsumeKafka(ctx context.Context, brokers []string, topic, groupID string, h Handler, log *zap.Logger) {
    r := kafka.NewReader(kafka.ReaderConfig{
        Brokers:  brokers,
        Topic:    topic,
        GroupID:  groupID,
        MaxBytes: 10e6,
    })
    defer r.Close()

    for {
        m, err := r.FetchMessage(ctx)
        if err != nil {
            if errors.Is(err, context.Canceled) || ctx.Err() != nil {
                return
            }
            log.Warn("notification consumer: kafka fetch failed", zap.Error(err))
            if !sleep(ctx, 2*time.Second) {
                return
            }
            continue
        }
        if err := handleBody(ctx, m.Value, h); err != nil {
            log.Error("notification consumer: handle message failed", zap.Error(err), zap.Int64("offset", m.Offset))
        }
        if err := r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
            log.Warn("notification consumer: commit failed", zap.Error(err))
        }
    }
}
