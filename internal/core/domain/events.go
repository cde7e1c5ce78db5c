package domain

import "time"

// UserLoggedInEvent is emitted after a successful login commits a new token.
type UserLoggedInEvent struct {
	UserID    int64
	Email     string
	LoggedAt  time.Time
	ExpiresAt time.Time
}

// TokenRefreshedEvent is emitted when a refresh supersedes the previous token.
type TokenRefreshedEvent struct {
	UserID      int64
	RefreshedAt time.Time
	ExpiresAt   time.Time
}

// VerificationRequestedEvent is emitted when a verification code is issued.
type VerificationRequestedEvent struct {
	Email       string
	RequestedAt time.Time
	ExpiresAt   time.Time
}
