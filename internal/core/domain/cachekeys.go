package domain

import "fmt"

// Cache key builders. Centralised so key shapes are never hand-assembled at
// call sites. The process-wide namespace prefix is applied below this layer,
// inside the key-value store wrapper, so these stay prefix-free.

// UserCacheKey addresses a cached user record.
func UserCacheKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// UserLoginCacheKey addresses cached login state for a user.
func UserLoginCacheKey(userID int64) string {
	return fmt.Sprintf("login:%d", userID)
}

// UserPermissionsCacheKey addresses cached permissions for a user.
func UserPermissionsCacheKey(userID int64) string {
	return fmt.Sprintf("permissions:%d", userID)
}

// RateLimitKey addresses the fixed-window counter for an identifier.
func RateLimitKey(identifier string) string {
	return fmt.Sprintf("rate_limit:%s", identifier)
}

// ResponseCacheKey addresses a cached API response.
func ResponseCacheKey(method, url string) string {
	return fmt.Sprintf("cache:%s:%s", method, url)
}
