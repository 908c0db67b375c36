// Package queue carries notification events from request handlers and jobs
// to the mail worker over a message broker.
package queue

import "time"

const (
    TypeMatchRequestCreated  = "match.request.created"
    TypeMatchRequestAccepted = "match.request.accepted"
    TypeEventReminder        = "event.reminder"
)

// Notification is one email-worthy event.  To and Name address the
// recipient; Data carries the template fields for Type.
type Notification struct {
    Type      string            `json:"type"`
    To        string            `json:"to"`
    Name      string            `json:"name"`
    Data      map[string]string `json:"data,omitempty"`
    CreatedAt time.Time         `json:"created_at"`
}
