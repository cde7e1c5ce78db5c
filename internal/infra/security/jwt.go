package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

var (
	// ErrTokenMalformed indicates the token's structure or signature is invalid.
	ErrTokenMalformed = errors.New("security: token malformed")
	// ErrTokenExpired indicates the token is past its encoded expiry.
	ErrTokenExpired = errors.New("security: token expired")
)

// TokenClaims binds the principal's identity to the token's timing fields.
type TokenClaims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 bearer tokens with a shared secret.
// Signing is pure: it has no side effect on the principal record, and a
// well-formed signature alone does not make a token valid; the authority of
// record is the stored current-token pointer checked a layer above.
type TokenCodec struct {
	secret []byte
	issuer string
}

// NewTokenCodec constructs a codec for the supplied shared secret.
func NewTokenCodec(secret, issuer string) (*TokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("security: jwt secret is required")
	}
	return &TokenCodec{secret: []byte(secret), issuer: issuer}, nil
}

// Sign produces a signed token encoding the identity claims plus issuedAt and
// expiresAt. Returns the token and its expiry instant.
func (c *TokenCodec) Sign(userID int64, email string, ttl time.Duration) (string, time.Time, error) {
	if userID <= 0 {
		return "", time.Time{}, fmt.Errorf("security: user id is required")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	claims := &TokenClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("security: sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse verifies the signature and timing of a token and returns its claims.
// Expiry is reported as ErrTokenExpired; every other defect as ErrTokenMalformed.
func (c *TokenCodec) Parse(token string) (*TokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenMalformed
	}

	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if claims.UserID <= 0 {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
