package queue

import (
    "context"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/mailer"
    "github.com/iliyamo/community-events/internal/model"
)

// MailHandler turns notifications into emails.  It is the consumer side of
// the queue and also the direct path when no broker is configured.
func MailHandler(n *mailer.Notifier) Handler {
    return func(ctx context.Context, msg Notification) error {
        d := msg.Data
        switch msg.Type {
        case TypeMatchRequestCreated:
            return n.MatchRequest(ctx, msg.To, msg.Name, d["from"], d["event_title"], d["message"])
        case TypeMatchRequestAccepted:
            return n.MatchAccepted(ctx, msg.To, msg.Name, d["from"], d["event_title"])
        case TypeEventReminder:
            start, err := time.Parse(time.RFC3339, d["start_date"])
            if err != nil {
                return fmt.Errorf("reminder start_date: %w", err)
            }
            return n.EventReminder(ctx, msg.To, msg.Name, d["event_title"], start)
        default:
            return fmt.Errorf("unknown notification type %q", msg.Type)
        }
    }
}

// Dispatcher publishes notifications when a broker is configured and
// otherwise handles them inline.
type Dispatcher struct {
    pub    Publisher
    direct Handler
    log    *zap.Logger
}

func NewDispatcher(pub Publisher, direct Handler, log *zap.Logger) *Dispatcher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Dispatcher{pub: pub, direct: direct, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
    if n.CreatedAt.IsZero() {
        n.CreatedAt = time.Now().UTC()
    }
    if d.pub != nil {
        return d.pub.Publish(ctx, n)
    }
    if d.direct != nil {
        return d.direct(ctx, n)
    }
    d.log.Debug("notification dropped, no publisher or handler", zap.String("type", n.Type))
    return nil
}

func (d *Dispatcher) RequestCreated(ctx context.Context, req *model.MatchRequest) error {
    msg := ""
    if req.Message != nil {
        msg = *req.Message
    }
    return d.Dispatch(ctx, Notification{
        Type: TypeMatchRequestCreated,
        To:   req.ToUser.Email,
        Name: req.ToUser.FullName,
        Data: map[string]string{
            "from":        req.FromUser.FullName,
            "event_id":    req.EventID,
            "event_title": req.Event.Title,
            "request_id":  req.ID,
            "message":     msg,
        },
    })
}

func (d *Dispatcher) RequestAccepted(ctx context.Context, req *model.MatchRequest) error {
    return d.Dispatch(ctx, Notification{
        Type: TypeMatchRequestAccepted,
        To:   req.FromUser.Email,
        Name: req.FromUser.FullName,
        Data: map[string]string{
            "from":        req.ToUser.FullName,
            "event_id":    req.EventID,
            "event_title": req.Event.Title,
            "request_id":  req.ID,
        },
    })
}

func (d *Dispatcher) EventReminder(ctx context.Context, to, name, eventID, title string, start time.Time) error {
    return d.Dispatch(ctx, Notification{
        Type: TypeEventReminder,
        To:   to,
        Name: name,
        Data: map[string]string{
            "event_id":    eventID,
            "event_title": title,
            "start_date":  start.UTC().Format(time.RFC3339),
        },
    })
}
