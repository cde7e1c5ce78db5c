package port

import (
	"context"

	"github.com/mtsatou/mte-core/internal/core/domain"
)

// VerificationRepository persists single-use email verification codes.
type VerificationRepository interface {
	// Save stores a code for the email, unconditionally replacing any prior
	// one (last write wins).
	Save(ctx context.Context, code domain.VerificationCode) error
	Get(ctx context.Context, email string) (*domain.VerificationCode, error)
	Delete(ctx context.Context, email string) error
	// DeleteExpired removes every code past its expiry and reports how many
	// rows were swept.
	DeleteExpired(ctx context.Context) (int64, error)
}
