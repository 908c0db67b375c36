package model

import "time"

type Category struct {
    ID          string    `json:"id"`
    Name        string    `json:"name"`
    Description *string   `json:"description,omitempty"`
    CreatedAt   time.Time `json:"createdAt"`
    UpdatedAt   time.Time `json:"updatedAt"`
}

// Interest is a topic users rate themselves on.  Category groups interests
// for browsing and is free text.
type Interest struct {
    ID          string    `json:"id"`
    Name        string    `json:"name"`
    Category    *string   `json:"category"`
    Description *string   `json:"description"`
    CreatedAt   time.Time `json:"createdAt"`
    UpdatedAt   time.Time `json:"updatedAt"`
}

const (
    MinInterestWeight     = 1
    MaxInterestWeight     = 10
    DefaultInterestWeight = 5
)

// UserInterest links a user to an interest with a weight in 1..10.
type UserInterest struct {
    ID         string    `json:"id"`
    UserID     string    `json:"userID"`
    InterestID string    `json:"interestID"`
    Name       string    `json:"name"`
    Category   *string   `json:"category,omitempty"`
    Weight     int       `json:"weight"`
    CreatedAt  time.Time `json:"createdAt"`
}

// ClampWeight forces w into the allowed weight range.
func ClampWeight(w int) int {
    if w < MinInterestWeight {
        return MinInterestWeight
    }
    if w > MaxInterestWeight {
        return MaxInterestWeight
    }
    return w
}
