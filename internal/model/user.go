package model

import "time"

const (
    RoleUser  = "user"
    RoleAdmin = "admin"

    UserStatusActive  = "active"
    UserStatusDeleted = "deleted"

    AuthProviderEmail  = "email"
    AuthProviderYandex = "yandex"
)

// User mirrors a row of the `users` table.  PasswordHash is empty for
// accounts created through Yandex OAuth and is never serialised.
type User struct {
    ID            string     `json:"id"`
    FullName      string     `json:"fullName"`
    Email         string     `json:"email"`
    PasswordHash  string     `json:"-"`
    YandexID      *string    `json:"-"`
    Telegram      string     `json:"telegram"`
    AvatarURL     string     `json:"avatarURL"`
    Role          string     `json:"role"`
    Status        string     `json:"status"`
    EmailVerified bool       `json:"emailVerified"`
    AuthProvider  string     `json:"authProvider"`
    CreatedAt     time.Time  `json:"createdAt"`
    UpdatedAt     time.Time  `json:"updatedAt"`
    DeletedAt     *time.Time `json:"-"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserRef is the compact user shape embedded in other resources.
type UserRef struct {
    ID       string `json:"id"`
    FullName string `json:"fullName,omitempty"`
    Email    string `json:"email,omitempty"`
}

// PendingRegistration is a sign-up waiting for its email code.
type PendingRegistration struct {
    ID            string
    FullName      string
    Email         string
    PasswordHash  string
    Telegram      string
    Code          string
    CodeExpiresAt time.Time
    Attempts      int
    CreatedAt     time.Time
}

// PasswordReset is a single-use token sent by email.
type PasswordReset struct {
    ID        string
    UserID    string
    Token     string
    ExpiresAt time.Time
    Used      bool
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
    ID        string
    UserID    string
    TokenHash string
    ExpiresAt time.Time
    RevokedAt *time.Time
    CreatedAt time.Time
}
