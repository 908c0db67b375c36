package model

import "time"

// Community is a micro-community.  AdminID is the creator; MembersCount is
// maintained alongside community_members inserts and deletes.
type Community struct {
    ID           string     `json:"id"`
    Name         string     `json:"name"`
    Description  *string    `json:"description"`
    AdminID      string     `json:"adminID"`
    Admin        *UserRef   `json:"admin,omitempty"`
    AutoNotify   bool       `json:"autoNotify"`
    MembersCount int        `json:"membersCount"`
    Interests    []Interest `json:"interests"`
    IsMember     bool       `json:"isMember"`
    CreatedAt    time.Time  `json:"createdAt"`
    UpdatedAt    time.Time  `json:"updatedAt"`
}

type CommunityMember struct {
    UserID   string    `json:"userID"`
    FullName string    `json:"fullName"`
    Email    string    `json:"email"`
    IsAdmin  bool      `json:"isAdmin"`
    JoinedAt time.Time `json:"joinedAt"`
}
