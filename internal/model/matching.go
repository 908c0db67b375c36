package model

import "time"

const (
    IntentLooking    = "LOOKING"
    IntentFound      = "FOUND"
    IntentGoingAlone = "GOING_ALONE"

    RequestPending  = "PENDING"
    RequestAccepted = "ACCEPTED"
    RequestRejected = "REJECTED"
)

// ValidIntentStatus reports whether s is a matching intent status.
func ValidIntentStatus(s string) bool {
    return s == IntentLooking || s == IntentFound || s == IntentGoingAlone
}

// ValidRequestStatus reports whether s is a match request status.
func ValidRequestStatus(s string) bool {
    return s == RequestPending || s == RequestAccepted || s == RequestRejected
}

// EventMatching is a user's declared matching intent for one event.
type EventMatching struct {
    ID          string    `json:"id"`
    UserID      string    `json:"userID"`
    EventID     string    `json:"eventID"`
    Status      string    `json:"status"`
    Preferences *string   `json:"preferences"`
    CreatedAt   time.Time `json:"createdAt"`
    UpdatedAt   time.Time `json:"updatedAt"`
}

// MatchRequest is a directed invitation between two users for one event.
type MatchRequest struct {
    ID         string    `json:"id"`
    FromUserID string    `json:"-"`
    ToUserID   string    `json:"-"`
    EventID    string    `json:"-"`
    FromUser   UserRef   `json:"fromUser"`
    ToUser     UserRef   `json:"toUser"`
    Event      EventRef  `json:"event"`
    Status     string    `json:"status"`
    Message    *string   `json:"message"`
    CreatedAt  time.Time `json:"createdAt"`
    UpdatedAt  time.Time `json:"updatedAt"`
}

type EventRef struct {
    ID    string `json:"id"`
    Title string `json:"title,omitempty"`
}
