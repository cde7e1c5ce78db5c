package domain

import "time"

// User represents a principal record. Besides profile fields it carries the
// single currently-valid bearer token: Token and TokenExpiresAt are overwritten
// on every login or refresh, which is what revokes all previously issued tokens.
type User struct {
	ID             int64
	Username       string
	Email          string
	PasswordHash   string
	Avatar         *string
	Token          *string
	TokenExpiresAt *int64 // epoch milliseconds
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	LastActiveAt   *time.Time
}

// HasCurrentToken reports whether the record holds a committed token pointer.
func (u *User) HasCurrentToken() bool {
	return u != nil && u.Token != nil && *u.Token != ""
}

// Sanitized returns a copy safe for API responses.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
