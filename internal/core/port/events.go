package port

import (
	"context"

	"github.com/mtsatou/mte-core/internal/core/domain"
)

// EventPublisher emits authentication lifecycle events to downstream
// consumers. Publishing is best-effort; failures must not fail the request
// that triggered the event.
type EventPublisher interface {
	PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error
	PublishTokenRefreshed(ctx context.Context, event domain.TokenRefreshedEvent) error
	PublishVerificationRequested(ctx context.Context, event domain.VerificationRequestedEvent) error
}
