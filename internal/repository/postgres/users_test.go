package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/mtsatou/mte-core/internal/core/domain"
	"github.com/mtsatou/mte-core/internal/repository"
)

func newUserMock(t *testing.T) (pgxmock.PgxPoolIface, *UserRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewUserRepository(mock)
}

func TestUserRepository_Create(t *testing.T) {
	mock, repo := newUserMock(t)

	user := domain.User{
		Username:     "sato",
		Email:        "sato@example.com",
		PasswordHash: "argon2-hash",
	}

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(
			user.Username,
			user.Email,
			user.PasswordHash,
			(*string)(nil),
			(*string)(nil),
			(*int64)(nil),
			pgxmock.AnyArg(),
			(*time.Time)(nil),
			(*time.Time)(nil),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	mock, repo := newUserMock(t)

	createdAt := time.Now().UTC()
	token := "jwt-token"
	expiresAt := createdAt.Add(2 * time.Hour).UnixMilli()

	rows := pgxmock.NewRows(userColumns).AddRow(
		int64(1), "sato", "sato@example.com", "argon2-hash",
		nil, &token, &expiresAt, createdAt, nil, nil,
	)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	user, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if user.ID != 1 || user.Username != "sato" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.Token == nil || *user.Token != token {
		t.Fatalf("expected token pointer to round-trip")
	}
	if user.TokenExpiresAt == nil || *user.TokenExpiresAt != expiresAt {
		t.Fatalf("expected token expiry to round-trip")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByEmailNotFound(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_SetCurrentToken(t *testing.T) {
	mock, repo := newUserMock(t)

	token := "new-token"
	expiresAt := time.Now().Add(2 * time.Hour).UnixMilli()

	mock.ExpectExec(`UPDATE users SET token = \$1, token_expires_at = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs(&token, &expiresAt, pgxmock.AnyArg(), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetCurrentToken(context.Background(), 1, &token, &expiresAt); err != nil {
		t.Fatalf("SetCurrentToken returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_SetCurrentTokenClears(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectExec(`UPDATE users SET token = \$1, token_expires_at = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs((*string)(nil), (*int64)(nil), pgxmock.AnyArg(), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetCurrentToken(context.Background(), 1, nil, nil); err != nil {
		t.Fatalf("SetCurrentToken returned error: %v", err)
	}
}

func TestUserRepository_SetCurrentTokenUnknownUser(t *testing.T) {
	mock, repo := newUserMock(t)

	token := "new-token"
	expiresAt := int64(0)

	mock.ExpectExec(`UPDATE users SET`).
		WithArgs(&token, &expiresAt, pgxmock.AnyArg(), int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetCurrentToken(context.Background(), 404, &token, &expiresAt)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_Update(t *testing.T) {
	mock, repo := newUserMock(t)

	avatar := "https://cdn.example.com/a.png"
	user := domain.User{
		ID:           1,
		Username:     "sato2",
		Email:        "sato@example.com",
		PasswordHash: "argon2-hash",
		Avatar:       &avatar,
	}

	mock.ExpectExec(`UPDATE users SET`).
		WithArgs(user.Username, user.Email, user.PasswordHash, &avatar, pgxmock.AnyArg(), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
}
