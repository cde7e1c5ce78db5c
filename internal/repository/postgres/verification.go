package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtsatou/mte-core/internal/core/domain"
	"github.com/mtsatou/mte-core/internal/core/port"
	"github.com/mtsatou/mte-core/internal/repository"
)

// VerificationRepository implements port.VerificationRepository using PostgreSQL.
// One row per email; saving upserts so a newer code always replaces an
// unclaimed older one.
type VerificationRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewVerificationRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewVerificationRepository(exec pgExecutor) *VerificationRepository {
	repo := &VerificationRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Save stores the code for its email, replacing any prior row.
func (r *VerificationRepository) Save(ctx context.Context, code domain.VerificationCode) error {
	stmt, args, err := r.builder.Insert("verification_codes").
		Columns("email", "code", "created_at", "expires_at").
		Values(code.Email, code.Code, code.CreatedAt, code.ExpiresAt).
		Suffix("ON CONFLICT (email) DO UPDATE SET code = EXCLUDED.code, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert verification code sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert verification code: %w", err)
	}

	return nil
}

// Get retrieves the live code for an email.
func (r *VerificationRepository) Get(ctx context.Context, email string) (*domain.VerificationCode, error) {
	stmt, args, err := r.builder.
		Select("email", "code", "created_at", "expires_at").
		From("verification_codes").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select verification code sql: %w", err)
	}

	var code domain.VerificationCode
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&code.Email, &code.Code, &code.CreatedAt, &code.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select verification code: %w", err)
	}

	return &code, nil
}

// Delete removes the code for an email, enforcing single-use semantics.
func (r *VerificationRepository) Delete(ctx context.Context, email string) error {
	stmt, args, err := r.builder.Delete("verification_codes").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete verification code sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteExpired sweeps every code past its expiry.
func (r *VerificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	stmt, args, err := r.builder.Delete("verification_codes").
		Where(squirrel.Lt{"expires_at": time.Now().UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired codes sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired codes: %w", err)
	}

	return tag.RowsAffected(), nil
}

var _ port.VerificationRepository = (*VerificationRepository)(nil)
