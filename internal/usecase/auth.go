package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/domain"
	"github.com/mtsatou/mte-core/internal/core/port"
	"github.com/mtsatou/mte-core/internal/infra/logger"
	"github.com/mtsatou/mte-core/internal/infra/security"
	"github.com/mtsatou/mte-core/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided identifier or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenMalformed indicates the token's signature or structure is invalid.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired indicates the token is past its encoded expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked indicates the token no longer matches the principal's
	// stored current token: a later login or refresh superseded it.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrUnknownPrincipal indicates the token references a principal that does not exist.
	ErrUnknownPrincipal = errors.New("unknown principal")
)

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// AuthService is the token authority: it issues signed bearer tokens, commits
// the single currently-valid token into the principal's durable record, and
// verifies presented tokens against both the signature and that record.
// Committing is the only revocation mechanism; there is no blacklist store.
type AuthService struct {
	users    port.UserRepository
	codec    *security.TokenCodec
	events   port.EventPublisher
	logger   *zap.Logger
	tokenTTL time.Duration
}

// NewAuthService wires the token authority.
func NewAuthService(users port.UserRepository, codec *security.TokenCodec, tokenTTL time.Duration, log *zap.Logger) (*AuthService, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if codec == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if tokenTTL <= 0 {
		tokenTTL = 2 * time.Hour
	}

	return &AuthService{
		users:    users,
		codec:    codec,
		logger:   log,
		tokenTTL: tokenTTL,
	}, nil
}

// WithEventPublisher attaches a publisher for auth lifecycle events.
func (s *AuthService) WithEventPublisher(events port.EventPublisher) *AuthService {
	s.events = events
	return s
}

// IssueToken produces a signed token for the identity claims. Pure: it does
// not touch the principal record; only Commit makes the token valid.
func (s *AuthService) IssueToken(userID int64, email string) (string, time.Time, error) {
	return s.codec.Sign(userID, email, s.tokenTTL)
}

// Commit overwrites the principal's stored current-token pointer and expiry.
// Until this completes the previous token remains valid; once it completes
// every previously issued token verifies as revoked. Concurrent commits for
// the same principal resolve last-writer-wins, which is the intended
// single-active-session semantics.
func (s *AuthService) Commit(ctx context.Context, userID int64, token string, expiresAtMillis int64) error {
	if err := s.users.SetCurrentToken(ctx, userID, &token, &expiresAtMillis); err != nil {
		return fmt.Errorf("commit token: %w", err)
	}
	return nil
}

// Login authenticates by id, email or username plus password, then issues and
// commits a fresh token, superseding any previously active session.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.resolveUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.Commit(ctx, user.ID, token, expiresAt.UnixMilli()); err != nil {
		return nil, err
	}

	user.Token = &token
	expMillis := expiresAt.UnixMilli()
	user.TokenExpiresAt = &expMillis

	s.publishLogin(ctx, user, expiresAt)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Sanitized(),
	}, nil
}

// VerifyToken checks a presented token through all four gates: signature and
// shape, encoded expiry, principal existence, and equality against the
// principal's stored current token. A cryptographically well-formed token
// that is not the stored one is revoked regardless of signature validity.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*security.TokenClaims, *domain.User, error) {
	claims, err := s.codec.Parse(token)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrTokenExpired):
			return nil, nil, ErrTokenExpired
		default:
			return nil, nil, ErrTokenMalformed
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUnknownPrincipal
		}
		return nil, nil, fmt.Errorf("lookup principal: %w", err)
	}

	if !user.HasCurrentToken() || *user.Token != token {
		return nil, nil, ErrTokenRevoked
	}

	return claims, user, nil
}

// Refresh verifies the presented token, issues a fresh one with the same
// identity claims (timing fields stripped by reissue), and commits it. The
// commit supersedes the presented token; this is the sole revocation path.
func (s *AuthService) Refresh(ctx context.Context, token string) (*LoginResult, error) {
	claims, user, err := s.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	fresh, expiresAt, err := s.IssueToken(claims.UserID, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.Commit(ctx, claims.UserID, fresh, expiresAt.UnixMilli()); err != nil {
		return nil, err
	}

	s.publishRefresh(ctx, claims.UserID, expiresAt)

	return &LoginResult{
		Token:     fresh,
		ExpiresAt: expiresAt,
		User:      user.Sanitized(),
	}, nil
}

// resolveUser looks an identifier up as numeric id first, then email, then
// username.
func (s *AuthService) resolveUser(ctx context.Context, identifier string) (*domain.User, error) {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil && id > 0 {
		user, err := s.users.GetByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	user, err := s.users.GetByEmail(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	return s.users.GetByUsername(ctx, identifier)
}

func (s *AuthService) publishLogin(ctx context.Context, user *domain.User, expiresAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.UserLoggedInEvent{
		UserID:    user.ID,
		Email:     user.Email,
		LoggedAt:  time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	if err := s.events.PublishUserLoggedIn(ctx, event); err != nil {
		s.logger.Warn("publish login event failed",
			zap.Int64("user_id", user.ID),
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err))
	}
}

func (s *AuthService) publishRefresh(ctx context.Context, userID int64, expiresAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.TokenRefreshedEvent{
		UserID:      userID,
		RefreshedAt: time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
	if err := s.events.PublishTokenRefreshed(ctx, event); err != nil {
		s.logger.Warn("publish refresh event failed",
			zap.Int64("user_id", userID), zap.Error(err))
	}
}
