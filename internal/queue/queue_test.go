package queue

import (
    "context"
    "encoding/json"
    "strings"
    "testing"
    "time"

    "github.com/iliyamo/community-events/internal/config"
    "github.com/iliyamo/community-events/internal/mailer"
    "github.com/iliyamo/community-events/internal/model"
)

type capturePublisher struct{ got []Notification }

func (c *capturePublisher) Publish(_ context.Context, n Notification) error {
    c.got = append(c.got, n)
    return nil
}

func (c *capturePublisher) Close() error { return nil }

func sampleRequest() *model.MatchRequest {
    msg := "let's go"
    return &model.MatchRequest{
        ID:         "r1",
        FromUserID: "a",
        ToUserID:   "b",
        EventID:    "e1",
        FromUser:   model.UserRef{ID: "a", FullName: "Alice", Email: "alice@x.io"},
        ToUser:     model.UserRef{ID: "b", FullName: "Bob", Email: "bob@x.io"},
        Event:      model.EventRef{ID: "e1", Title: "Go meetup"},
        Message:    &msg,
    }
}

func TestDispatcherPublishesWhenBrokerConfigured(t *testing.T) {
    pub := &capturePublisher{}
    d := NewDispatcher(pub, nil, nil)

    if err := d.RequestCreated(context.Background(), sampleRequest()); err != nil {
        t.Fatal(err)
    }
    if err := d.RequestAccepted(context.Background(), sampleRequest()); err != nil {
        t.Fatal(err)
    }
    if len(pub.got) != 2 {
        t.Fatalf("published %d", len(pub.got))
    }
    created, accepted := pub.got[0], pub.got[1]
    if created.Type != TypeMatchRequestCreated || created.To != "bob@x.io" || created.Data["from"] != "Alice" {
        t.Errorf("created = %+v", created)
    }
    if accepted.Type != TypeMatchRequestAccepted || accepted.To != "alice@x.io" || accepted.Data["from"] != "Bob" {
        t.Errorf("accepted = %+v", accepted)
    }
    if created.CreatedAt.IsZero() {
        t.Error("CreatedAt not stamped")
    }
}

func TestDispatcherFallsBackToMail(t *testing.T) {
    lm := mailer.NewLogMailer(nil)
    n := mailer.NewNotifier(lm, "log", "noreply@x.io", "", "http://x", nil)
    d := NewDispatcher(nil, MailHandler(n), nil)

    start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
    if err := d.EventReminder(context.Background(), "bob@x.io", "Bob", "e1", "Go meetup", start); err != nil {
        t.Fatal(err)
    }
    if err := d.RequestCreated(context.Background(), sampleRequest()); err != nil {
        t.Fatal(err)
    }
    sent := lm.Sent()
    if len(sent) != 2 {
        t.Fatalf("sent %d", len(sent))
    }
    if !strings.Contains(sent[0].HTML, "Go meetup") || sent[0].To[0] != "bob@x.io" {
        t.Errorf("reminder = %+v", sent[0])
    }
    if !strings.Contains(sent[1].HTML, "let&#39;s go") {
        t.Errorf("request mail lacks message: %s", sent[1].HTML)
    }
}

func TestMailHandlerRejectsUnknownType(t *testing.T) {
    n := mailer.NewNotifier(mailer.NewLogMailer(nil), "log", "a@x.io", "", "", nil)
    if err := MailHandler(n)(context.Background(), Notification{Type: "nope"}); err == nil {
        t.Fatal("expected error")
    }
}

func TestHandleBodyDecodes(t *testing.T) {
    body, _ := json.Marshal(Notification{Type: TypeEventReminder, To: "x@y.z"})
    var got Notification
    err := handleBody(context.Background(), body, func(_ context.Context, n Notification) error {
        got = n
        return nil
    })
    if err != nil || got.To != "x@y.z" {
        t.Fatalf("got %+v, %v", got, err)
    }
    if err := handleBody(context.Background(), []byte("{"), nil); err == nil {
        t.Fatal("expected unmarshal error")
    }
}

func TestNewPublisher(t *testing.T) {
    p, err := NewPublisher(config.QueueConfig{Backend: "none"}, nil)
    if err != nil || p != nil {
        t.Fatalf("none: %v, %v", p, err)
    }
    p, err = NewPublisher(config.QueueConfig{Backend: "rabbitmq", RabbitURL: "amqp://localhost", Topic: "n"}, nil)
    if _, ok := p.(*RabbitPublisher); !ok || err != nil {
        t.Fatalf("rabbitmq: %T, %v", p, err)
    }
    p, err = NewPublisher(config.QueueConfig{Backend: "kafka", KafkaBrokers: []string{"localhost:9092"}, Topic: "n"}, nil)
    if _, ok := p.(*KafkaPublisher); !ok || err != nil {
        t.Fatalf("kafka: %T, %v", p, err)
    }
    _ = p.Close()
    if _, err := NewPublisher(config.QueueConfig{Backend: "carrier-pigeon"}, nil); err == nil {
        t.Fatal("expected error for unknown backend")
    }
}
