package port

import (
	"context"

	"github.com/mtsatou/mte-core/internal/core/domain"
)

// UserRepository exposes persistence behavior for principal records.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user domain.User) error
	// SetCurrentToken overwrites the principal's current-token pointer and its
	// expiry (epoch milliseconds). This is the commit that makes a token "the"
	// valid one and implicitly supersedes whatever was stored before. Nil
	// values clear the pointer.
	SetCurrentToken(ctx context.Context, id int64, token *string, expiresAt *int64) error
}
