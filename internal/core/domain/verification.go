package domain

import "time"

// VerificationCode is a single-use email verification code. At most one live
// code exists per email; saving a new one replaces whatever was stored before.
type VerificationCode struct {
	Email     string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the code is past its expiry at the given instant.
func (v VerificationCode) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
