package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mtsatou/mte-core/internal/core/domain"
	"github.com/mtsatou/mte-core/internal/repository"
)

type memoryCodeRepo struct {
	codes map[string]domain.VerificationCode
}

func newMemoryCodeRepo() *memoryCodeRepo {
	return &memoryCodeRepo{codes: make(map[string]domain.VerificationCode)}
}

func (r *memoryCodeRepo) Save(_ context.Context, code domain.VerificationCode) error {
	r.codes[code.Email] = code
	return nil
}

func (r *memoryCodeRepo) Get(_ context.Context, email string) (*domain.VerificationCode, error) {
	code, ok := r.codes[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &code, nil
}

func (r *memoryCodeRepo) Delete(_ context.Context, email string) error {
	if _, ok := r.codes[email]; !ok {
		return repository.ErrNotFound
	}
	delete(r.codes, email)
	return nil
}

func (r *memoryCodeRepo) DeleteExpired(_ context.Context) (int64, error) {
	now := time.Now().UTC()
	var n int64
	for email, code := range r.codes {
		if code.Expired(now) {
			delete(r.codes, email)
			n++
		}
	}
	return n, nil
}

type stubMailer struct {
	sent []string
	err  error
}

func (m *stubMailer) Send(_ context.Context, email, code string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email+":"+code)
	return nil
}

func TestVerificationServiceRequestStoresAndSends(t *testing.T) {
	repo := newMemoryCodeRepo()
	mailer := &stubMailer{}
	service := NewVerificationService(repo, mailer, 10*time.Minute, nil)
	ctx := context.Background()

	if err := service.Request(ctx, "sato@example.com"); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}

	stored, err := repo.Get(ctx, "sato@example.com")
	if err != nil {
		t.Fatalf("expected a stored code: %v", err)
	}
	if len(stored.Code) != 6 {
		t.Fatalf("expected a 6-digit code, got %q", stored.Code)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(mailer.sent))
	}
}

func TestVerificationServiceRequestReplacesPriorCode(t *testing.T) {
	repo := newMemoryCodeRepo()
	service := NewVerificationService(repo, &stubMailer{}, 10*time.Minute, nil)
	ctx := context.Background()

	if err := service.Request(ctx, "sato@example.com"); err != nil {
		t.Fatalf("first Request returned error: %v", err)
	}
	first, _ := repo.Get(ctx, "sato@example.com")

	if err := service.Request(ctx, "sato@example.com"); err != nil {
		t.Fatalf("second Request returned error: %v", err)
	}
	second, _ := repo.Get(ctx, "sato@example.com")

	// Last write wins: the stored code is the replacement.
	if first.Code != second.Code {
		ok, err := service.Verify(ctx, "sato@example.com", first.Code)
		if err != nil {
			t.Fatalf("Verify returned error: %v", err)
		}
		if ok {
			t.Fatalf("superseded code must not verify")
		}
	}

	ok, err := service.Verify(ctx, "sato@example.com", second.Code)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the replacement code to verify")
	}
}

func TestVerificationServiceMailFailure(t *testing.T) {
	repo := newMemoryCodeRepo()
	mailer := &stubMailer{err: errors.New("smtp refused")}
	service := NewVerificationService(repo, mailer, 10*time.Minute, nil)

	err := service.Request(context.Background(), "sato@example.com")
	if !errors.Is(err, ErrMailDelivery) {
		t.Fatalf("expected ErrMailDelivery, got %v", err)
	}
}

func TestVerificationServiceVerifySingleUse(t *testing.T) {
	repo := newMemoryCodeRepo()
	service := NewVerificationService(repo, &stubMailer{}, 10*time.Minute, nil)
	ctx := context.Background()

	if err := service.Request(ctx, "sato@example.com"); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	stored, _ := repo.Get(ctx, "sato@example.com")

	ok, err := service.Verify(ctx, "sato@example.com", stored.Code)
	if err != nil || !ok {
		t.Fatalf("expected first redemption to succeed, got ok=%v err=%v", ok, err)
	}

	// The code is consumed on match.
	ok, err = service.Verify(ctx, "sato@example.com", stored.Code)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected a consumed code to fail")
	}
}

func TestVerificationServiceVerifyMismatchKeepsCode(t *testing.T) {
	repo := newMemoryCodeRepo()
	service := NewVerificationService(repo, &stubMailer{}, 10*time.Minute, nil)
	ctx := context.Background()

	if err := service.Request(ctx, "sato@example.com"); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	stored, _ := repo.Get(ctx, "sato@example.com")

	wrong := "000000"
	if wrong == stored.Code {
		wrong = "000001"
	}

	ok, err := service.Verify(ctx, "sato@example.com", wrong)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch to fail")
	}

	// The code survives a mismatch so the user can retry.
	ok, err = service.Verify(ctx, "sato@example.com", stored.Code)
	if err != nil || !ok {
		t.Fatalf("expected retry with the right code to succeed, got ok=%v err=%v", ok, err)
	}
}

func TestVerificationServiceVerifyExpiredDeletes(t *testing.T) {
	repo := newMemoryCodeRepo()
	now := time.Now().UTC()
	clock := now
	service := NewVerificationService(repo, &stubMailer{}, 10*time.Minute, nil).
		WithClock(func() time.Time { return clock })
	ctx := context.Background()

	if err := service.Request(ctx, "sato@example.com"); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	stored, _ := repo.Get(ctx, "sato@example.com")

	clock = now.Add(11 * time.Minute)

	ok, err := service.Verify(ctx, "sato@example.com", stored.Code)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected expired code to fail")
	}
	if _, err := repo.Get(ctx, "sato@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected expired code to be deleted, got %v", err)
	}
}

func TestVerificationServiceVerifyUnknownEmail(t *testing.T) {
	service := NewVerificationService(newMemoryCodeRepo(), &stubMailer{}, 10*time.Minute, nil)

	ok, err := service.Verify(context.Background(), "nobody@example.com", "123456")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected unknown email to fail quietly")
	}
}

func TestVerificationServiceCleanExpired(t *testing.T) {
	repo := newMemoryCodeRepo()
	now := time.Now().UTC()
	repo.codes["old@example.com"] = domain.VerificationCode{
		Email:     "old@example.com",
		Code:      "111111",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(-50 * time.Minute),
	}
	repo.codes["fresh@example.com"] = domain.VerificationCode{
		Email:     "fresh@example.com",
		Code:      "222222",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}

	service := NewVerificationService(repo, &stubMailer{}, 10*time.Minute, nil)

	n, err := service.CleanExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanExpired returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept code, got %d", n)
	}
	if _, ok := repo.codes["fresh@example.com"]; !ok {
		t.Fatalf("expected live code to survive the sweep")
	}
}
