package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/metrics"
)

// RabbitPublisher publishes persistent JSON messages to a durable queue
// through the default exchange.  The connection is opened on first use and
// reopened after it closes.
type RabbitPublisher struct {
    url   string
    queue string
    log   *zap.Logger

    mu   sync.Mutex
    conn *amqp.Connection
}

func NewRabbitPublisher(url, queue string, log *zap.Logger) *RabbitPublisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &RabbitPublisher{url: url, queue: queue, log: log}
}

func (p *RabbitPublisher) connection() (*amqp.Connection, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn != nil && !p.conn.IsClosed() {
        return p.conn, nil
    }
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("rabbitmq dial: %w", err)
    }
    p.conn = conn
    return conn, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, n Notification) error {
    err := p.publish(ctx, n)
    status := "ok"
    if err != nil {
        status = "error"
        p.log.Warn("rabbitmq publish failed", zap.String("type", n.Type), zap.Error(err))
    }
    metrics.NotificationsPublishedTotal.WithLabelValues("rabbitmq", n.Type, status).Inc()
    return err
}

func (p *RabbitPublisher) publish(ctx context.Context, n Notification) error {
    conn, err := p.connection()
    if err != nil {
        return err
    }
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    if n.CreatedAt.IsZero() {
        n.CreatedAt = time.Now().UTC()
    }
    body, err := json.Marshal(n)
    if err != nil {
        return err
    }
    return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    n.CreatedAt,
        Type:         n.Type,
        Body:         body,
    })
}

func (p *RabbitPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil || p.conn.IsClosed() {
        return nil
    }
    return p.conn.Close()
}

// Handler processes one decoded notification.  A returned error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, n Notification) error

// ConsumeRabbit consumes the queue until ctx is cancelled, reconnecting with
// exponential backoff capped at 30s whenever the broker goes away.
func ConsumeRabbit(ctx context.Context, url, queue string, h Handler, log *zap.Logger) {
    backoff := time.Second
    for ctx.Err() == nil {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("notification consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, queue, h, log)
        _ = conn.Close()
        if err != nil && ctx.Err() == nil {
            log.Warn("notification consumer: loop ended, reconnecting", zap.Error(err))
            if !sleep(ctx, 2*time.Second) {
                return
            }
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, h Handler, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("notification consumer: set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return nil
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleBody(ctx, d.Body, h); err != nil {
                log.Error("notification consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleBody(ctx context.Context, body []byte, h Handler) error {
    var n Notification
    if err := json.Unmarshal(body, &n); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    return h(ctx, n)
}
