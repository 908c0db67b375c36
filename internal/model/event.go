package model

import "time"

const (
    EventStatusActive   = "active"
    EventStatusPast     = "past"
    EventStatusRejected = "rejected"
)

// ValidEventStatus reports whether s is one of the event statuses.
func ValidEventStatus(s string) bool {
    return s == EventStatusActive || s == EventStatusPast || s == EventStatusRejected
}

// Event is an event with its resolved relations.  OrganizerID is always set;
// Organizer is filled only when the row was loaded with an explicit join.
type Event struct {
    ID                string        `json:"id"`
    Title             string        `json:"title"`
    ShortDescription  *string       `json:"shortDescription"`
    FullDescription   string        `json:"fullDescription"`
    StartDate         time.Time     `json:"startDate"`
    EndDate           time.Time     `json:"endDate"`
    ImageURL          *string       `json:"imageURL"`
    PaymentInfo       *string       `json:"paymentInfo"`
    MaxParticipants   *int          `json:"maxParticipants"`
    Status            string        `json:"status"`
    OrganizerID       string        `json:"organizerID"`
    Organizer         *UserRef      `json:"organizer,omitempty"`
    Tags              []string      `json:"tags"`
    Address           *string       `json:"address"`
    Latitude          *float64      `json:"latitude"`
    Longitude         *float64      `json:"longitude"`
    YandexMapLink     *string       `json:"yandexMapLink"`
    ParticipantsCount int           `json:"participantsCount"`
    Categories        []Category    `json:"categories"`
    Participants      []Participant `json:"participants,omitempty"`
    IsParticipant     bool          `json:"isParticipant"`
    AverageRating     *float64      `json:"averageRating,omitempty"`
    CreatedAt         time.Time     `json:"createdAt"`
    UpdatedAt         time.Time     `json:"updatedAt"`
    DeletedAt         *time.Time    `json:"-"`
}

// IsFull reports whether the participant cap has been reached.
func (e Event) IsFull() bool {
    return e.MaxParticipants != nil && e.ParticipantsCount >= *e.MaxParticipants
}

// Participant is a row of event_participants joined with the user.
type Participant struct {
    UserID   string    `json:"userID"`
    FullName string    `json:"fullName"`
    Email    string    `json:"email"`
    Telegram string    `json:"telegram,omitempty"`
    JoinedAt time.Time `json:"joinedAt"`
}

// Review is a rating left on a past event by one of its participants.
type Review struct {
    ID        string    `json:"id"`
    EventID   string    `json:"eventID"`
    UserID    string    `json:"userID"`
    UserName  string    `json:"userName,omitempty"`
    Rating    int       `json:"rating"`
    Comment   *string   `json:"comment"`
    CreatedAt time.Time `json:"createdAt"`
    UpdatedAt time.Time `json:"updatedAt"`
}
