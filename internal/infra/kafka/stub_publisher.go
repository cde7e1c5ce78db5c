package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/domain"
	"github.com/mtsatou/mte-core/internal/core/port"
	"github.com/mtsatou/mte-core/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserLoggedIn logs auth.user.logged_in events.
func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	p.logEvent("auth.user.logged_in", event.LoggedAt, map[string]any{
		"user_id":    event.UserID,
		"email":      logger.MaskEmail(event.Email),
		"expires_at": event.ExpiresAt,
	})
	return nil
}

// PublishTokenRefreshed logs auth.token.refreshed events.
func (p *StubPublisher) PublishTokenRefreshed(_ context.Context, event domain.TokenRefreshedEvent) error {
	p.logEvent("auth.token.refreshed", event.RefreshedAt, map[string]any{
		"user_id":    event.UserID,
		"expires_at": event.ExpiresAt,
	})
	return nil
}

// PublishVerificationRequested logs auth.verification.requested events.
func (p *StubPublisher) PublishVerificationRequested(_ context.Context, event domain.VerificationRequestedEvent) error {
	p.logEvent("auth.verification.requested", event.RequestedAt, map[string]any{
		"email":      logger.MaskEmail(event.Email),
		"expires_at": event.ExpiresAt,
	})
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
